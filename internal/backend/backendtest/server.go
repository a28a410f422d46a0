// Package backendtest runs an in-process NetManager backend for tests.
// It speaks the same REST and /ws protocol as the real backend and keeps
// its state in memory.
package backendtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Account mirrors the backend's account row. Field names are emitted
// untagged, as the backend does.
type Account struct {
	ID         int64
	Username   string
	Password   string
	Bandwidth  int
	Status     string
	LastUsedAt int64
	Disabled   bool
}

type failure struct {
	status int
	body   string
}

// Server is a fake backend
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	members     map[string]string
	status      string
	ifaceMap    map[string]string
	accounts    []Account
	nextID      int64
	artifact    []byte
	restored    []byte
	loginStarts []string
	requests    []string
	failPaths   map[string]failure
	failWANs    map[string]string

	upgrader websocket.Upgrader
	subs     map[*websocket.Conn]bool
}

// New starts a fake backend over plain HTTP
func New() *Server {
	s := &Server{
		members:   make(map[string]string),
		ifaceMap:  make(map[string]string),
		nextID:    1,
		failPaths: make(map[string]failure),
		failWANs:  make(map[string]string),
		subs:      make(map[*websocket.Conn]bool),
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.record)

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/mwan/interfaces", s.handleInterfaces).Methods(http.MethodGet)
	r.HandleFunc("/api/mwan/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/iface-map", s.handleIfaceMapList).Methods(http.MethodGet)
	r.HandleFunc("/api/iface-map", s.handleIfaceMapSet).Methods(http.MethodPost)
	r.HandleFunc("/api/accounts", s.handleAccountsList).Methods(http.MethodGet)
	r.HandleFunc("/api/accounts", s.handleAccountsAdd).Methods(http.MethodPost)
	r.HandleFunc("/api/login/start", s.handleLoginStart).Methods(http.MethodPost)
	r.HandleFunc("/api/backup", s.handleBackup).Methods(http.MethodGet)
	r.HandleFunc("/api/restore", s.handleRestore).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWS)

	return r
}

// record logs each request and applies any configured path failure
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		f, fail := s.failPaths[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if fail {
			http.Error(w, f.body, f.status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetMembers replaces the mwan member map
func (s *Server) SetMembers(m map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = copyMap(m)
}

// SetStatus replaces the raw mwan status report
func (s *Server) SetStatus(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = raw
}

// SetArtifact replaces the configuration artifact served by /api/backup
func (s *Server) SetArtifact(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact = append([]byte(nil), b...)
}

// AddAccount seeds an account and returns its id
func (s *Server) AddAccount(a Account) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextID
	s.nextID++
	if a.Status == "" {
		a.Status = "IDLE"
	}
	s.accounts = append(s.accounts, a)
	return a.ID
}

// Fail makes every request for method and path answer with status and body
func (s *Server) Fail(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPaths[method+" "+path] = failure{status: status, body: body}
}

// FailWAN makes /api/iface-map writes for wan fail with body
func (s *Server) FailWAN(wan, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWANs[wan] = body
}

// Requests returns "METHOD /path" for every request received, in order
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// IfaceMap returns the persisted WAN to NIC map
func (s *Server) IfaceMap() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMap(s.ifaceMap)
}

// LoginStarts returns the WAN ids login was triggered for, in order
func (s *Server) LoginStarts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.loginStarts...)
}

// Restored returns the last body posted to /api/restore
func (s *Server) Restored() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.restored...)
}

// Subscribers returns the number of connected log sockets
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Broadcast sends line to every connected log socket
func (s *Server) Broadcast(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.subs {
		if err := c.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			c.Close()
			delete(s.subs, c)
		}
	}
}

// DropSubscribers closes every log socket without a close handshake
func (s *Server) DropSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.subs {
		c.Close()
		delete(s.subs, c)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) handleInterfaces(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	m := copyMap(s.members)
	s.mu.Unlock()
	writeJSON(w, map[string]any{"member_map": m})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	raw := s.status
	s.mu.Unlock()
	writeJSON(w, map[string]any{"status": raw})
}

func (s *Server) handleIfaceMapList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.IfaceMap())
}

func (s *Server) handleIfaceMapSet(w http.ResponseWriter, r *http.Request) {
	var req struct{ WanIface, Nic string }
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.WanIface == "" || req.Nic == "" {
		http.Error(w, "wan_iface and nic required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := s.failWANs[req.WanIface]; ok {
		http.Error(w, msg, http.StatusInternalServerError)
		return
	}
	s.ifaceMap[req.WanIface] = req.Nic
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) handleAccountsList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := append([]Account{}, s.accounts...)
	s.mu.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	writeJSON(w, list)
}

func (s *Server) handleAccountsAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username, Password string
		Bandwidth          int
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" || req.Bandwidth <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	id := s.AddAccount(Account{Username: req.Username, Password: req.Password, Bandwidth: req.Bandwidth})
	writeJSON(w, map[string]any{"id": id})
}

func (s *Server) handleLoginStart(w http.ResponseWriter, r *http.Request) {
	wan := r.URL.Query().Get("wan")
	if wan == "" {
		http.Error(w, "wan query required", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.loginStarts = append(s.loginStarts, wan)
	s.mu.Unlock()
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data := append([]byte(nil), s.artifact...)
	s.mu.Unlock()
	w.Header().Set("Content-Disposition", "attachment; filename=netmanager.db")
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.mu.Lock()
	s.restored = data
	s.mu.Unlock()
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.subs[conn] = true
	s.mu.Unlock()

	// Drain client frames so close handshakes are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.mu.Lock()
				if s.subs[conn] {
					delete(s.subs, conn)
					conn.Close()
				}
				s.mu.Unlock()
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
