package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"mini-shuffle/internal/common"
	"mini-shuffle/internal/driver"
	"mini-shuffle/internal/shuffle"
	"mini-shuffle/internal/udf"
)

// Demo: wordcount local a traves del shuffle real, con el servidor de
// ficheros embebido sirviendo los bloques por HTTP.
func main() {
	inputPath := flag.String("input", "data/inputs/wordcount.txt", "fichero de entrada")
	maps := flag.Int("maps", 2, "particiones de entrada (tareas map)")
	reduces := flag.Int("reduces", 2, "particiones de salida (tareas reduce)")
	flag.Parse()

	cfg := common.LoadConfig()
	store := shuffle.Initialize(cfg)
	drv := driver.NewLocalDriver(cfg, store)

	partitions, err := loadPartitions(*inputPath, *maps)
	if err != nil {
		log.Fatalf("[Main] No se pudo cargar la entrada: %v", err)
	}

	agg, err := udf.GetAggregator("count_sum")
	if err != nil {
		log.Fatalf("[Main] %v", err)
	}

	results, err := drv.RunShuffle(driver.Job{
		Name:            "wordcount",
		NumOutputSplits: *reduces,
		Aggregator:      agg,
	}, partitions)
	if err != nil {
		log.Fatalf("[Main] Shuffle fallo: %v", err)
	}

	for _, kv := range driver.Collect(results) {
		fmt.Printf("%s\t%s\n", kv.Key, kv.Value)
	}
}

// loadPartitions reparte las lineas del fichero en n particiones round-robin
// y tokeniza cada linea a pares (palabra, "1").
func loadPartitions(path string, n int) ([]common.Iterator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("abriendo %s: %w", path, err)
	}
	defer f.Close()

	parts := make([][]common.KeyValue, n)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		p := lineNo % n
		for _, w := range strings.Fields(scanner.Text()) {
			parts[p] = append(parts[p], common.KeyValue{Key: strings.ToLower(w), Value: "1"})
		}
		lineNo++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("leyendo %s: %w", path, err)
	}

	its := make([]common.Iterator, n)
	for i := range parts {
		its[i] = common.SliceIterator(parts[i])
	}
	return its, nil
}
