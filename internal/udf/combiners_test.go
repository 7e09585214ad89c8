package udf

import "testing"

func TestAggregatorCountSum(t *testing.T) {
	agg, err := GetAggregator("count_sum")
	if err != nil {
		t.Fatalf("count_sum no registrado: %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "CreateCombiner", got: agg.CreateCombiner("3"), want: "3"},
		{name: "MergeValue", got: agg.MergeValue("3", "4"), want: "7"},
		{name: "MergeCombiners", got: agg.MergeCombiners("7", "5"), want: "12"},
		// Asociatividad con literales: (1+2)+3 == 1+(2+3)
		{name: "Asociativo", got: agg.MergeCombiners(agg.MergeCombiners("1", "2"), "3"),
			want: agg.MergeCombiners("1", agg.MergeCombiners("2", "3"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("Esperado %s, obtenido %s", tt.want, tt.got)
			}
		})
	}
}

func TestAggregatorConcatValues(t *testing.T) {
	agg, err := GetAggregator("concat_values")
	if err != nil {
		t.Fatalf("concat_values no registrado: %v", err)
	}
	if got := agg.MergeValue("a", "b"); got != "a,b" {
		t.Errorf("MergeValue esperado a,b, obtenido %s", got)
	}
	if got := agg.MergeCombiners("a,b", "c"); got != "a,b,c" {
		t.Errorf("MergeCombiners esperado a,b,c, obtenido %s", got)
	}
}

func TestGetAggregatorNoExiste(t *testing.T) {
	if _, err := GetAggregator("fantasma"); err == nil {
		t.Error("Se esperaba error para un agregador no registrado")
	}
}
