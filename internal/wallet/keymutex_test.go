package wallet

import (
	"sync"
	"testing"

	"github.com/Klingon-tech/cisp-wallet/pkg/types"
)

func TestAddressMutex_Exclusive(t *testing.T) {
	m := newAddressMutex()
	addr := types.Address{1}

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock(addr)
			counter++
			m.Unlock(addr)
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("counter = %d, want 100", counter)
	}
	if len(m.mutexes) != 0 {
		t.Errorf("%d mutexes left after all unlocks", len(m.mutexes))
	}
}

func TestAddressMutex_Independent(t *testing.T) {
	m := newAddressMutex()
	a, b := types.Address{1}, types.Address{2}

	m.Lock(a)
	done := make(chan struct{})
	go func() {
		m.Lock(b)
		m.Unlock(b)
		close(done)
	}()
	<-done
	m.Unlock(a)
}

func TestAddressMutex_DoubleUnlockPanics(t *testing.T) {
	m := newAddressMutex()
	defer func() {
		if recover() == nil {
			t.Error("unlocking an unlocked address should panic")
		}
	}()
	m.Unlock(types.Address{1})
}
