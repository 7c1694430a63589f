package wallet

import (
	"fmt"
	"sync"

	"github.com/Klingon-tech/cisp-wallet/pkg/types"
)

// addressMutex hands out one mutex per wallet address so that key derivation
// and re-encryption for the same wallet never overlap, while different
// wallets proceed in parallel.
type addressMutex struct {
	mapMtx  sync.Mutex
	mutexes map[types.Address]*cntMutex
}

// cntMutex is a mutex with the number of callers holding or waiting on it.
type cntMutex struct {
	cnt int
	sync.Mutex
}

func newAddressMutex() *addressMutex {
	return &addressMutex{mutexes: make(map[types.Address]*cntMutex)}
}

// Lock blocks until the mutex for addr is available.
func (m *addressMutex) Lock(addr types.Address) {
	m.mapMtx.Lock()
	mtx, ok := m.mutexes[addr]
	if ok {
		mtx.cnt++
	} else {
		mtx = &cntMutex{cnt: 1}
		m.mutexes[addr] = mtx
	}
	m.mapMtx.Unlock()

	mtx.Lock()
}

// Unlock releases the mutex for addr. The entry is dropped once no caller
// holds or waits on it.
func (m *addressMutex) Unlock(addr types.Address) {
	m.mapMtx.Lock()
	mtx, ok := m.mutexes[addr]
	if !ok {
		m.mapMtx.Unlock()
		panic(fmt.Sprintf("double unlock for address %v", addr))
	}
	mtx.cnt--
	if mtx.cnt == 0 {
		delete(m.mutexes, addr)
	}
	m.mapMtx.Unlock()

	mtx.Unlock()
}
