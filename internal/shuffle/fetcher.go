package shuffle

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"mini-shuffle/internal/common"
)

// Fetcher es el estado transitorio de UNA tarea reduce: que productores
// quedan por drenar, cuales tienen descarga en vuelo y el mapa compartido
// de combinadores. Se crea al arrancar la tarea y se descarta al terminar.
//
// Tres objetos compartidos, cada uno con su propio cerrojo: done, inFlight
// y combiners. Nunca se anidan ni se mantienen durante I/O. Las entradas de
// totalBlocksInSplit y hasBlocksInSplit en el indice p solo las escribe la
// tarea que tiene el bit en vuelo de p: ese bit hace de mutex por productor.
type Fetcher struct {
	cfg       common.Config
	shuffleID uint64
	myID      int // particion de salida que consume este reduce

	outputLocs  []common.MapOutput // indexado por mapId
	totalSplits int

	totalBlocksInSplit []int // -1 hasta leer el sidecar del productor p
	hasBlocksInSplit   []int // bloques ya consumidos del productor p

	done     *BitVector // bit p: productor p drenado; Count() == hasSplits
	inFlight *BitVector // bit p: descarga en curso contra el productor p

	combinersMu sync.Mutex
	combiners   map[string]string

	merge common.MergeCombiners

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewFetcher prepara el estado por-reduce para la particion de salida myID.
// outputLocs va indexado por mapId. La semilla es por-reduce para que los
// tests puedan fijarla y los reduce concurrentes no compartan generador.
func NewFetcher(cfg common.Config, shuffleID uint64, myID int,
	outputLocs []common.MapOutput, merge common.MergeCombiners, seed int64) *Fetcher {

	total := len(outputLocs)
	totalBlocks := make([]int, total)
	for i := range totalBlocks {
		totalBlocks[i] = -1
	}
	return &Fetcher{
		cfg:                cfg,
		shuffleID:          shuffleID,
		myID:               myID,
		outputLocs:         outputLocs,
		totalSplits:        total,
		totalBlocksInSplit: totalBlocks,
		hasBlocksInSplit:   make([]int, total),
		done:               NewBitVector(total),
		inFlight:           NewBitVector(total),
		combiners:          make(map[string]string),
		merge:              merge,
		rng:                rand.New(rand.NewSource(seed)),
	}
}

// selectRandomSplit elige uniformemente un productor sin drenar y sin
// descarga en vuelo; -1 si no hay candidatos. El snapshot de inFlight va
// primero: solo el goroutine de admision pone bits en vuelo, y una tarea
// marca done antes de soltar el suyo, asi que un productor drenado nunca
// resulta elegible.
func (f *Fetcher) selectRandomSplit() int {
	inFlight := f.inFlight.Snapshot()
	done := f.done.Snapshot()

	var candidatos []int
	for p := 0; p < f.totalSplits; p++ {
		if !testWord(done, p) && !testWord(inFlight, p) {
			candidatos = append(candidatos, p)
		}
	}
	if len(candidatos) == 0 {
		return -1
	}
	f.rngMu.Lock()
	i := f.rng.Intn(len(candidatos))
	f.rngMu.Unlock()
	return candidatos[i]
}

// Run ejecuta el bucle de admision hasta drenar los totalSplits productores
// y devuelve los combinadores acumulados de la particion myID.
func (f *Fetcher) Run() map[string]string {
	pool := NewWorkerPool(f.cfg.MaxConnections)
	defer pool.Stop()

	maxParalelo := f.totalSplits
	if f.cfg.MaxConnections < maxParalelo {
		maxParalelo = f.cfg.MaxConnections
	}

	for f.done.Count() < f.totalSplits {
		slots := maxParalelo - pool.Active()
		for slots > 0 && f.done.Count() < f.totalSplits {
			p := f.selectRandomSplit()
			if p < 0 {
				break
			}
			// El bit en vuelo se marca ANTES de encolar, para que la
			// siguiente seleccion del mismo ciclo no repita productor.
			f.inFlight.Set(p)
			task := &clientTask{fetcher: f, uri: f.outputLocs[p].ServerURI, slot: p}
			pool.Submit(task.Run)
			slots--
		}
		time.Sleep(time.Duration(f.cfg.MinKnockInterval) * time.Millisecond)
	}

	// La ultima tarea marca el drenado antes de soltar su bit en vuelo: se
	// espera a que lo suelte para devolver un estado quiescente.
	for f.inFlight.Count() > 0 {
		time.Sleep(time.Millisecond)
	}

	log.Printf("[Fetcher] reduce %d: %d/%d productores drenados (shuffle %d)",
		f.myID, f.done.Count(), f.totalSplits, f.shuffleID)
	return f.combiners
}

// fold acumula un registro recibido bajo el cerrojo de combiners.
func (f *Fetcher) fold(kv common.KeyValue) {
	f.combinersMu.Lock()
	if old, ok := f.combiners[kv.Key]; ok {
		f.combiners[kv.Key] = f.merge(old, kv.Value)
	} else {
		f.combiners[kv.Key] = kv.Value
	}
	f.combinersMu.Unlock()
}
