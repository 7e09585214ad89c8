package shuffle

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// El pool nunca ejecuta mas de maxWorkers tareas a la vez aunque se
// encolen muchas mas.
func TestWorkerPoolLimiteParalelismo(t *testing.T) {
	const maxWorkers = 3
	const tareas = 20

	pool := NewWorkerPool(maxWorkers)
	defer pool.Stop()

	var (
		activas int32
		pico    int32
		wg      sync.WaitGroup
	)
	for i := 0; i < tareas; i++ {
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			n := atomic.AddInt32(&activas, 1)
			for {
				p := atomic.LoadInt32(&pico)
				if n <= p || atomic.CompareAndSwapInt32(&pico, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&activas, -1)
		})
	}
	wg.Wait()

	if pico > maxWorkers {
		t.Errorf("Paralelismo excedido: pico %d con maxWorkers %d", pico, maxWorkers)
	}
}

func TestWorkerPoolActive(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Stop()

	bloqueo := make(chan struct{})
	arrancada := make(chan struct{})
	pool.Submit(func() {
		close(arrancada)
		<-bloqueo
	})

	<-arrancada
	if pool.Active() != 1 {
		t.Errorf("Active esperado 1, obtenido %d", pool.Active())
	}
	close(bloqueo)

	// Al drenar, Active vuelve a cero.
	for i := 0; i < 100 && pool.Active() != 0; i++ {
		time.Sleep(time.Millisecond)
	}
	if pool.Active() != 0 {
		t.Errorf("Active no volvio a 0: %d", pool.Active())
	}
}

// Submit con el pool lleno encola sin perder trabajo.
func TestWorkerPoolEncola(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Stop()

	var ejecutadas int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			atomic.AddInt32(&ejecutadas, 1)
		})
	}
	wg.Wait()
	if ejecutadas != 10 {
		t.Errorf("Se ejecutaron %d tareas de 10", ejecutadas)
	}
}
