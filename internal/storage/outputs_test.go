package storage

import (
	"sync"
	"testing"

	"mini-shuffle/internal/common"
)

func TestMapOutputTracker(t *testing.T) {
	tracker := NewMapOutputTracker()

	if tracker.StageComplete(1, 2) {
		t.Error("Etapa completa sin salidas registradas")
	}
	if _, ok := tracker.CollectOutputs(1, 2); ok {
		t.Error("CollectOutputs ok sin salidas registradas")
	}

	tracker.SaveOutput(1, common.MapOutput{MapID: 1, ServerURI: "http://b"})
	if tracker.StageComplete(1, 2) {
		t.Error("Etapa completa con una salida de dos")
	}
	if _, ok := tracker.CollectOutputs(1, 2); ok {
		t.Error("CollectOutputs ok con un hueco en mapId 0")
	}

	tracker.SaveOutput(1, common.MapOutput{MapID: 0, ServerURI: "http://a"})
	if !tracker.StageComplete(1, 2) {
		t.Error("Etapa deberia estar completa")
	}

	locs, ok := tracker.CollectOutputs(1, 2)
	if !ok {
		t.Fatal("CollectOutputs fallo con la etapa completa")
	}
	// Ordenadas por mapId aunque se registraran al reves.
	if locs[0].ServerURI != "http://a" || locs[1].ServerURI != "http://b" {
		t.Errorf("Salidas desordenadas: %+v", locs)
	}

	// Shuffles distintos no se mezclan.
	tracker.SaveOutput(2, common.MapOutput{MapID: 0, ServerURI: "http://c"})
	if tracker.StageComplete(2, 2) {
		t.Error("El shuffle 2 no deberia estar completo")
	}

	tracker.Forget(1)
	if tracker.StageComplete(1, 2) {
		t.Error("El shuffle olvidado sigue registrado")
	}
}

func TestMapOutputTrackerConcurrente(t *testing.T) {
	tracker := NewMapOutputTracker()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tracker.SaveOutput(9, common.MapOutput{MapID: i, ServerURI: "http://x"})
		}(i)
	}
	wg.Wait()

	if !tracker.StageComplete(9, n) {
		t.Errorf("Faltan salidas tras %d registros concurrentes", n)
	}
	locs, ok := tracker.CollectOutputs(9, n)
	if !ok || len(locs) != n {
		t.Fatalf("CollectOutputs fallo: ok=%v len=%d", ok, len(locs))
	}
	for i, out := range locs {
		if out.MapID != i {
			t.Errorf("Posicion %d con mapId %d", i, out.MapID)
		}
	}
}
