package shuffle

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
)

var nextShuffleID atomic.Uint64

// NewShuffleID entrega un ID de shuffle estrictamente creciente dentro del
// proceso. Un ID nunca se reutiliza; es el namespace de todos los ficheros
// y URLs de un shuffle.
func NewShuffleID() uint64 {
	return nextShuffleID.Add(1) - 1
}

// Layout en disco, parte del contrato de red (NO cambiar):
//
//	<root>/shuffle/<shuffleId>/<mapId>/<outPart>-<blockSeq>
//	<root>/shuffle/<shuffleId>/<mapId>/BLOCKNUM-<outPart>

// MapDir es el directorio que contiene todos los bloques de una tarea map.
func MapDir(root string, shuffleID uint64, mapID int) string {
	return filepath.Join(root, "shuffle", fmt.Sprintf("%d", shuffleID), fmt.Sprintf("%d", mapID))
}

// OutputPath es la ruta del bloque blockSeq de (shuffleId, mapId, outPart).
func OutputPath(root string, shuffleID uint64, mapID, outPart, blockSeq int) string {
	return filepath.Join(MapDir(root, shuffleID, mapID), fmt.Sprintf("%d-%d", outPart, blockSeq))
}

// BlockCountPath es la ruta del sidecar BLOCKNUM de (shuffleId, mapId, outPart).
func BlockCountPath(root string, shuffleID uint64, mapID, outPart int) string {
	return filepath.Join(MapDir(root, shuffleID, mapID), fmt.Sprintf("BLOCKNUM-%d", outPart))
}

// OutputURL es la forma de red de OutputPath sobre el servidor del productor.
func OutputURL(serverURI string, shuffleID uint64, mapID, outPart, blockSeq int) string {
	return fmt.Sprintf("%s/shuffle/%d/%d/%d-%d", serverURI, shuffleID, mapID, outPart, blockSeq)
}

// BlockCountURL es la forma de red de BlockCountPath.
func BlockCountURL(serverURI string, shuffleID uint64, mapID, outPart int) string {
	return fmt.Sprintf("%s/shuffle/%d/%d/BLOCKNUM-%d", serverURI, shuffleID, mapID, outPart)
}
