package shuffle

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"mini-shuffle/internal/common"
)

// clientTask descarga de UN productor en una tacada: el sidecar BLOCKNUM si
// aun no se conoce, y despues el siguiente bloque pendiente. Corre en un
// worker del pool; el slot es el indice del productor (== mapId).
type clientTask struct {
	fetcher *Fetcher
	uri     string
	slot    int
}

// Run avanza el estado del productor slot. Pase lo que pase, el bit en
// vuelo se suelta al salir: si la tarea no dreno al productor, este vuelve
// a ser elegible en un ciclo de admision posterior.
func (t *clientTask) Run() {
	f := t.fetcher
	defer f.inFlight.Clear(t.slot)

	if f.totalBlocksInSplit[t.slot] == -1 {
		n, err := fetchBlockCount(BlockCountURL(t.uri, f.shuffleID, t.slot, f.myID))
		if err != nil {
			log.Printf("[Cliente] reduce %d: sidecar del productor %d (%s) fallo: %v",
				f.myID, t.slot, t.uri, err)
			return
		}
		f.totalBlocksInSplit[t.slot] = n
	}

	b := f.hasBlocksInSplit[t.slot]
	if b < f.totalBlocksInSplit[t.slot] {
		if err := t.readBlock(b); err != nil {
			log.Printf("[Cliente] reduce %d: bloque %d del productor %d fallo: %v",
				f.myID, b, t.slot, err)
			return
		}
		f.hasBlocksInSplit[t.slot]++
	}

	if f.hasBlocksInSplit[t.slot] == f.totalBlocksInSplit[t.slot] {
		f.done.Set(t.slot)
	}
}

// readBlock lee el bloque seq entero y pliega cada registro en el mapa
// compartido. io.EOF al borde de registro es el terminador normal del
// stream; cualquier otro error de decodificacion (truncamiento incluido)
// es un fallo reintentable y el bloque se volvera a pedir completo.
func (t *clientTask) readBlock(seq int) error {
	f := t.fetcher
	url := OutputURL(t.uri, f.shuffleID, t.slot, f.myID, seq)

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s devolvio status %d", url, resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	for {
		var kv common.KeyValue
		err := dec.Decode(&kv)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decodificando %s: %w", url, err)
		}
		f.fold(kv)
	}
}

// fetchBlockCount lee el unico entero del sidecar BLOCKNUM.
func fetchBlockCount(url string) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("GET %s devolvio status %d", url, resp.StatusCode)
	}
	var n int
	if err := json.NewDecoder(resp.Body).Decode(&n); err != nil {
		return 0, fmt.Errorf("decodificando BLOCKNUM de %s: %w", url, err)
	}
	return n, nil
}
