package udf

import (
	"fmt"
	"strconv"

	"mini-shuffle/internal/common"
)

// Aggregator agrupa el trio de combinadores asociativos con el que un job
// define su agregacion por clave.
type Aggregator struct {
	CreateCombiner common.CreateCombiner
	MergeValue     common.MergeValue
	MergeCombiners common.MergeCombiners
}

var AggregatorRegistry = map[string]Aggregator{
	// count_sum: valores enteros en texto, suma por clave. Conmutativo.
	"count_sum": {
		CreateCombiner: func(v string) string { return v },
		MergeValue:     sumStr,
		MergeCombiners: sumStr,
	},
	// concat_values: concatena valores con coma. Asociativo pero NO
	// conmutativo; solo para consumidores a los que no importa el orden.
	"concat_values": {
		CreateCombiner: func(v string) string { return v },
		MergeValue:     func(c, v string) string { return c + "," + v },
		MergeCombiners: func(a, b string) string { return a + "," + b },
	},
}

func sumStr(a, b string) string {
	ai, _ := strconv.Atoi(a)
	bi, _ := strconv.Atoi(b)
	return strconv.Itoa(ai + bi)
}

// GetAggregator recupera un agregador registrado por nombre.
func GetAggregator(name string) (Aggregator, error) {
	if agg, ok := AggregatorRegistry[name]; ok {
		return agg, nil
	}
	return Aggregator{}, fmt.Errorf("aggregator %s not found", name)
}
