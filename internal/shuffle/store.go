package shuffle

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"mini-shuffle/internal/common"
)

// LocalStore es el directorio local de shuffle de este proceso mas el
// endpoint de solo lectura que lo publica.
type LocalStore struct {
	Dir       string // directorio unico bajo cfg.LocalDir
	ServerURI string // URI que consumen los fetchers remotos
}

var (
	storeOnce sync.Once
	theStore  *LocalStore
)

// Initialize provisiona el almacen local exactamente una vez por proceso y
// publica su ServerURI. Un fallo aqui es irrecuperable.
func Initialize(cfg common.Config) *LocalStore {
	storeOnce.Do(func() {
		s, err := NewLocalStore(cfg)
		if err != nil {
			log.Fatalf("[Store] Inicializacion del shuffle local fallo: %v", err)
		}
		theStore = s
	})
	return theStore
}

// NewLocalStore hace el trabajo de Initialize sin la garantia de unica vez.
// Los tests crean varios stores independientes con el.
func NewLocalStore(cfg common.Config) (*LocalStore, error) {
	dir, err := createLocalDir(cfg.LocalDir)
	if err != nil {
		return nil, err
	}
	s := &LocalStore{Dir: dir}

	if cfg.ExternalServerPort >= 0 {
		s.ServerURI = externalURI(cfg, dir)
	} else {
		uri, err := s.startServer()
		if err != nil {
			return nil, err
		}
		s.ServerURI = uri
	}
	log.Printf("[Store] Directorio %s publicado en %s", s.Dir, s.ServerURI)
	return s, nil
}

// createLocalDir intenta hasta diez nombres con UUID fresco bajo root.
func createLocalDir(root string) (string, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("creando raiz %s: %w", root, err)
	}
	for intento := 1; intento <= 10; intento++ {
		dir := filepath.Join(root, "shuffle-local-"+uuid.New().String())
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, nil
		}
		log.Printf("[Store] Intento %d de crear %s fallo: %v", intento, dir, err)
	}
	return "", fmt.Errorf("no se pudo crear el directorio local tras 10 intentos bajo %s", root)
}

// startServer monta <dir>/shuffle en /shuffle y escucha en un puerto
// efimero. La goroutine del servidor es de fondo: no impide salir al proceso.
func (s *LocalStore) startServer() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("no se pudo abrir el puerto del servidor de shuffle: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/shuffle/", http.StripPrefix("/shuffle/",
		http.FileServer(http.Dir(filepath.Join(s.Dir, "shuffle")))))
	go http.Serve(ln, mux)

	port := ln.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("http://127.0.0.1:%d", port), nil
}

// externalURI calcula la URI equivalente cuando un servidor estatico externo
// ya sirve cfg.LocalDir: el prefijo configurado mas el nombre del directorio.
func externalURI(cfg common.Config, dir string) string {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	base := fmt.Sprintf("http://%s:%d", host, cfg.ExternalServerPort)
	if p := strings.Trim(cfg.ExternalServerPath, "/"); p != "" {
		base += "/" + p
	}
	return base + "/" + filepath.Base(dir)
}
