package main

import (
	"fmt"
	"os"
)

func main() {
	os.MkdirAll("data/inputs", 0755)

	// Texto plano para el demo de wordcount: repetimos una base de palabras
	// para que cada clave aparezca muchas veces en varias particiones.
	fmt.Println("Generando data/inputs/wordcount.txt ...")
	wcContent := ""
	baseText := "hola mundo sistema distribuido go spark flink datos nube proceso "
	for i := 0; i < 2000; i++ {
		wcContent += baseText + "\n"
	}
	os.WriteFile("data/inputs/wordcount.txt", []byte(wcContent), 0644)

	fmt.Println(" Datos generados exitosamente.")
}
