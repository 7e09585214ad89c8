package driver

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"mini-shuffle/internal/common"
	"mini-shuffle/internal/shuffle"
	"mini-shuffle/internal/storage"
	"mini-shuffle/internal/udf"
)

// Job describe un shuffle completo: nombre para logs, numero de particiones
// de salida y el trio de combinadores.
type Job struct {
	Name            string
	NumOutputSplits int
	Aggregator      udf.Aggregator
}

// LocalDriver ejecuta las dos etapas en el proceso local: los map en
// paralelo, y al completarse todos, un reduce por particion de salida.
type LocalDriver struct {
	cfg     common.Config
	store   *shuffle.LocalStore
	tracker *storage.MapOutputTracker
}

func NewLocalDriver(cfg common.Config, store *shuffle.LocalStore) *LocalDriver {
	return &LocalDriver{
		cfg:     cfg,
		store:   store,
		tracker: storage.NewMapOutputTracker(),
	}
}

// RunShuffle redistribuye las particiones de entrada por clave y devuelve
// un mapa de combinadores por particion de salida.
func (d *LocalDriver) RunShuffle(job Job, partitions []common.Iterator) ([]map[string]string, error) {
	shuffleID := shuffle.NewShuffleID()
	log.Printf("[Driver] job %s: shuffle %d con %d maps y %d reduces",
		job.Name, shuffleID, len(partitions), job.NumOutputSplits)

	// Etapa map: una goroutine por particion de entrada. Las salidas solo
	// se exponen a los reduce cuando TODAS las tareas map terminaron.
	var wg sync.WaitGroup
	mapErrs := make([]error, len(partitions))
	for mapID, it := range partitions {
		wg.Add(1)
		go func(mapID int, it common.Iterator) {
			defer wg.Done()
			taskID := uuid.New().String()
			out, err := shuffle.RunMapTask(d.store, d.cfg, shuffleID, mapID, it,
				job.NumOutputSplits, job.Aggregator.CreateCombiner, job.Aggregator.MergeValue)
			if err != nil {
				mapErrs[mapID] = fmt.Errorf("tarea map %s (particion %d): %w", taskID, mapID, err)
				return
			}
			d.tracker.SaveOutput(shuffleID, out)
		}(mapID, it)
	}
	wg.Wait()
	for _, err := range mapErrs {
		if err != nil {
			return nil, err
		}
	}

	outputLocs, ok := d.tracker.CollectOutputs(shuffleID, len(partitions))
	if !ok {
		return nil, fmt.Errorf("shuffle %d: faltan salidas de la etapa map", shuffleID)
	}
	defer d.tracker.Forget(shuffleID)

	// Etapa reduce: un fetcher por particion de salida. La semilla del
	// generador es por-reduce y derivada del par (shuffle, particion).
	results := make([]map[string]string, job.NumOutputSplits)
	var rwg sync.WaitGroup
	for myID := 0; myID < job.NumOutputSplits; myID++ {
		rwg.Add(1)
		go func(myID int) {
			defer rwg.Done()
			seed := int64(shuffleID)*31 + int64(myID)
			f := shuffle.NewFetcher(d.cfg, shuffleID, myID, outputLocs,
				job.Aggregator.MergeCombiners, seed)
			results[myID] = f.Run()
		}(myID)
	}
	rwg.Wait()

	log.Printf("[Driver] job %s: shuffle %d completado", job.Name, shuffleID)
	return results, nil
}

// Collect aplana los resultados de los reduce en una lista ordenada por
// clave, el formato que espera el consumidor downstream.
func Collect(results []map[string]string) []common.KeyValue {
	var flat []common.KeyValue
	for _, part := range results {
		for k, v := range part {
			flat = append(flat, common.KeyValue{Key: k, Value: v})
		}
	}
	sort.Slice(flat, func(i, j int) bool { return flat[i].Key < flat[j].Key })
	return flat
}
