package wallet

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Klingon-tech/cisp-wallet/pkg/types"
)

// RecordVersion is the current persisted record format.
const RecordVersion = 1

// Balances holds the two token balances of a wallet.
type Balances struct {
	PrimaryToken   float64 `json:"primaryToken"`
	SecondaryToken float64 `json:"secondaryToken"`

	// legacy is set when the stored value was a bare number.
	legacy bool
}

// UnmarshalJSON accepts both the object form and the legacy bare-number
// form, which is read as the primary token balance.
func (b *Balances) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*b = Balances{}
		return nil
	}
	if data[0] != '{' {
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("balances: %w", err)
		}
		*b = Balances{PrimaryToken: n, legacy: true}
		return nil
	}

	var obj struct {
		PrimaryToken   float64 `json:"primaryToken"`
		SecondaryToken float64 `json:"secondaryToken"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("balances: %w", err)
	}
	*b = Balances{PrimaryToken: obj.PrimaryToken, SecondaryToken: obj.SecondaryToken}
	return nil
}

// Record is the persisted form of a wallet. It never contains the mnemonic,
// the password or a derived key.
type Record struct {
	Address       types.Address `json:"address"`
	Name          string        `json:"name"`
	EncryptedSeed string        `json:"encryptedSeed"`
	Salt          string        `json:"salt"`
	IV            string        `json:"iv"`
	CreatedAt     int64         `json:"createdAt"`
	LastAccessed  int64         `json:"lastAccessed"`
	Balances      Balances      `json:"balances"`
	Version       int           `json:"version"`
	Revision      uint64        `json:"revision"`
	Scheme        *Scheme       `json:"scheme,omitempty"`
}

// Created returns CreatedAt as a time.
func (r *Record) Created() time.Time {
	return time.UnixMilli(r.CreatedAt).UTC()
}

// Accessed returns LastAccessed as a time.
func (r *Record) Accessed() time.Time {
	return time.UnixMilli(r.LastAccessed).UTC()
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := *r
	if r.Scheme != nil {
		s := *r.Scheme
		c.Scheme = &s
	}
	return &c
}

// sealedSeed is the decoded encrypted seed of a record.
type sealedSeed struct {
	ciphertext []byte
	salt       []byte
	iv         []byte
}

// sealed decodes the hex encoded seed fields.
func (r *Record) sealed() (*sealedSeed, error) {
	ct, err := hex.DecodeString(r.EncryptedSeed)
	if err != nil {
		return nil, fmt.Errorf("decode encryptedSeed: %w", err)
	}
	salt, err := hex.DecodeString(r.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	iv, err := hex.DecodeString(r.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	if len(salt) != SaltSize || len(iv) != IVSize {
		return nil, fmt.Errorf("salt/iv size %d/%d, want %d/%d", len(salt), len(iv), SaltSize, IVSize)
	}
	return &sealedSeed{ciphertext: ct, salt: salt, iv: iv}, nil
}

// scheme returns the record's scheme, or DefaultScheme for records written
// before schemes were recorded.
func (r *Record) scheme() Scheme {
	if r.Scheme == nil {
		return DefaultScheme()
	}
	return *r.Scheme
}

// needsMigration reports whether the record predates the current format.
func (r *Record) needsMigration() bool {
	return r.Balances.legacy || r.Version < RecordVersion || r.Revision == 0
}

// migrate upgrades a legacy record in place.
func (r *Record) migrate() {
	r.Balances.legacy = false
	if r.Version < RecordVersion {
		r.Version = RecordVersion
	}
	if r.Revision == 0 {
		r.Revision = 1
	}
}

func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse wallet record: %w", err)
	}
	if rec.Version > RecordVersion {
		return nil, fmt.Errorf("unsupported wallet record version: %d", rec.Version)
	}
	return &rec, nil
}

func encodeRecord(rec *Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal wallet record: %w", err)
	}
	return data, nil
}
