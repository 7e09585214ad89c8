package shuffle

import (
	"bufio"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"os"

	"mini-shuffle/internal/common"
)

// hashKey reduce la clave a 32 bits CON signo: puede salir negativo, de ahi
// el doble modulo de bucketFor.
func hashKey(key string) int32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int32(h.Sum32())
}

// bucketFor enruta un hash (posiblemente negativo) a [0, n).
func bucketFor(hash int32, n int) int {
	return ((int(hash) % n) + n) % n
}

// RunMapTask materializa la salida de UNA particion de entrada: particiona
// por hash en numOutputSplits buckets, combina en memoria por clave y vuelca
// cada bucket como bloques acotados mas su sidecar BLOCKNUM. Devuelve la
// ubicacion (mapId, serverUri) que consumiran los reduce.
//
// Cualquier fallo de I/O es fatal para la tarea: sin sidecar consistente no
// se anuncia nada y el scheduler reintenta la tarea entera.
func RunMapTask(store *LocalStore, cfg common.Config, shuffleID uint64, mapID int,
	input common.Iterator, numOutputSplits int,
	create common.CreateCombiner, merge common.MergeValue) (common.MapOutput, error) {

	buckets := make([]map[string]string, numOutputSplits)
	for i := range buckets {
		buckets[i] = make(map[string]string)
	}

	for kv, ok := input(); ok; kv, ok = input() {
		b := bucketFor(hashKey(kv.Key), numOutputSplits)
		if c, exists := buckets[b][kv.Key]; exists {
			buckets[b][kv.Key] = merge(c, kv.Value)
		} else {
			buckets[b][kv.Key] = create(kv.Value)
		}
	}

	dir := MapDir(store.Dir, shuffleID, mapID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return common.MapOutput{}, fmt.Errorf("creando %s: %w", dir, err)
	}

	for out := 0; out < numOutputSplits; out++ {
		if err := writeBucket(store, cfg, shuffleID, mapID, out, buckets[out]); err != nil {
			return common.MapOutput{}, fmt.Errorf("map %d particion %d: %w", mapID, out, err)
		}
	}

	log.Printf("[Writer] map %d: %d buckets volcados (shuffle %d)", mapID, numOutputSplits, shuffleID)
	return common.MapOutput{MapID: mapID, ServerURI: store.ServerURI}, nil
}

// writeBucket vuelca las entradas de un bucket en bloques 0..B-1 y escribe
// el sidecar BLOCKNUM-<outPart> con B. El umbral de tamaño se comprueba
// DESPUES de escribir cada registro, asi que un registro enorme puede dejar
// su bloque por encima de BlockSize.
func writeBucket(store *LocalStore, cfg common.Config, shuffleID uint64, mapID, outPart int,
	bucket map[string]string) error {

	var (
		blockSeq int
		file     *os.File
		buf      *bufio.Writer
		enc      *json.Encoder
	)

	openBlock := func() error {
		path := OutputPath(store.Dir, shuffleID, mapID, outPart, blockSeq)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("abriendo bloque %s: %w", path, err)
		}
		file = f
		buf = bufio.NewWriter(f)
		enc = json.NewEncoder(buf)
		return nil
	}

	closeBlock := func() error {
		if err := buf.Flush(); err != nil {
			file.Close()
			return fmt.Errorf("cerrando bloque %d-%d: %w", outPart, blockSeq, err)
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("cerrando bloque %d-%d: %w", outPart, blockSeq, err)
		}
		file = nil
		blockSeq++
		return nil
	}

	for key, combiner := range bucket {
		if file == nil {
			if err := openBlock(); err != nil {
				return err
			}
		}
		if err := enc.Encode(common.KeyValue{Key: key, Value: combiner}); err != nil {
			file.Close()
			return fmt.Errorf("serializando registro en bloque %d-%d: %w", outPart, blockSeq, err)
		}
		if err := buf.Flush(); err != nil {
			file.Close()
			return fmt.Errorf("volcando bloque %d-%d: %w", outPart, blockSeq, err)
		}
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return fmt.Errorf("consultando bloque %d-%d: %w", outPart, blockSeq, err)
		}
		if info.Size() > cfg.BlockSizeBytes() {
			if err := closeBlock(); err != nil {
				return err
			}
		}
	}
	if file != nil {
		if err := closeBlock(); err != nil {
			return err
		}
	}

	return writeBlockCount(store, shuffleID, mapID, outPart, blockSeq)
}

// writeBlockCount escribe el sidecar con el numero de bloques cerrados.
// Va SIEMPRE despues de los bloques: un consumidor que ve BLOCKNUM puede
// direccionar todos los bloques que anuncia.
func writeBlockCount(store *LocalStore, shuffleID uint64, mapID, outPart, blocks int) error {
	path := BlockCountPath(store.Dir, shuffleID, mapID, outPart)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("abriendo sidecar %s: %w", path, err)
	}
	if err := json.NewEncoder(f).Encode(blocks); err != nil {
		f.Close()
		return fmt.Errorf("escribiendo sidecar %s: %w", path, err)
	}
	return f.Close()
}
