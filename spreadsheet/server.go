package spreadsheet

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/websocket"

	"karl/address"
	"karl/pubsub"
	"karl/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all for local dev
	},
}

// Server exposes an Engine over a websocket, broadcasting every cell
// change to connected clients and, optionally, to a ZeroMQ pubsub
// notifier for out-of-process subscribers.
type Server struct {
	Engine   *Engine
	notifier *pubsub.Notifier

	// Store is optional; when set, /sheets/{id} supports GET (load) and
	// PUT (save) of the engine's exported JSON state.
	Store *store.Store

	clients map[*websocket.Conn]bool
	mu      sync.Mutex
}

// NewServer builds a server over a fresh 200x26 grid and seeds it with the
// introductory example sheet. notifier may be nil.
func NewServer(notifier *pubsub.Notifier) *Server {
	s := &Server{
		Engine:   NewEngine(200, 26),
		notifier: notifier,
		clients:  make(map[*websocket.Conn]bool),
	}
	s.Engine.SubscribeAll(s.onEngineChange)
	s.populateIntro()
	return s
}

func (s *Server) onEngineChange(id address.CellID, res Result) {
	// Built from res rather than createUpdateResponse: the engine holds its
	// lock while publishing, so GetResult would block here.
	resp := UpdateResponse{Type: "cell_updated", ID: string(id), Raw: s.Engine.Model().GetContent(id)}
	if res.Err != nil {
		resp.Display, resp.Error = "#ERROR", res.Err.Message
	} else {
		resp.Display = res.Value.String()
	}
	s.mu.Lock()
	for client := range s.clients {
		if err := client.WriteJSON(resp); err != nil {
			log.Printf("broadcast write failed: %v", err)
			_ = client.Close()
			delete(s.clients, client)
		}
	}
	s.mu.Unlock()

	if s.notifier == nil {
		return
	}
	change := pubsub.Change{CellID: string(id)}
	if res.Err != nil {
		change.IsError = true
		change.Error = res.Err.Message
	} else {
		change.Value = res.Value.String()
	}
	if err := s.notifier.Publish(change); err != nil {
		log.Printf("pubsub publish failed for %s: %v", id, err)
	}
}

func (s *Server) mustSetContent(id address.CellID, raw string) {
	if err := s.Engine.SetContent(id, raw); err != nil {
		log.Printf("set cell %s failed: %v", id, err)
	}
}

func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	s.sendInitialState(conn)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var req UpdateRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			log.Println("JSON error:", err)
			continue
		}

		switch req.Type {
		case "update_cell":
			s.mustSetContent(address.CellID(req.ID), req.Value)
		case "clear":
			s.Engine = NewEngine(s.Engine.Model().Rows(), s.Engine.Model().Cols())
			s.Engine.SubscribeAll(s.onEngineChange)
			s.broadcastReset()
		case "load_intro":
			s.populateIntro()
			s.broadcastReset()
		case "load_example":
			switch req.Example {
			case "lookup":
				s.populateLookup()
			case "dates":
				s.populateDates()
			case "matrix":
				s.populateMatrix()
			case "conditionals":
				s.populateConditionals()
			default:
				s.populateIntro()
			}
			s.broadcastReset()
		}
	}
}

// broadcastReset tells clients to drop their local state, then replays
// every non-empty cell's current result.
func (s *Server) broadcastReset() {
	s.mu.Lock()
	for client := range s.clients {
		if err := client.WriteJSON(UpdateResponse{Type: "reset"}); err != nil {
			log.Printf("reset write failed: %v", err)
			_ = client.Close()
			delete(s.clients, client)
		}
	}
	s.mu.Unlock()

	for _, id := range s.Engine.Model().NonEmptyCells() {
		resp := s.createUpdateResponse(id)
		s.mu.Lock()
		for client := range s.clients {
			if err := client.WriteJSON(resp); err != nil {
				log.Printf("broadcast write failed: %v", err)
				_ = client.Close()
				delete(s.clients, client)
			}
		}
		s.mu.Unlock()
	}
}

// populateIntro seeds a small welcome sheet exercising the core formula
// surface: arithmetic, SUM over a range, and IF.
func (s *Server) populateIntro() {
	s.mustSetContent("A1", "Karl Sheets")
	s.mustSetContent("B1", "Reactive formula demo")

	s.mustSetContent("A3", "1. Arithmetic")
	s.mustSetContent("B3", "10")
	s.mustSetContent("C3", "32")
	s.mustSetContent("D3", "=B3+C3")
	s.mustSetContent("E3", "<- Sum")

	s.mustSetContent("A5", "2. Range aggregate")
	s.mustSetContent("B5", "4")
	s.mustSetContent("C5", "8")
	s.mustSetContent("D5", "15")
	s.mustSetContent("E5", "=SUM(B5:D5)")
	s.mustSetContent("F5", "<- SUM(B5:D5)")

	s.mustSetContent("A7", "3. Conditional")
	s.mustSetContent("B7", "72")
	s.mustSetContent("C7", `=IF(B7>=60,"pass","fail")`)
	s.mustSetContent("D7", "<- Change B7!")

	s.mustSetContent("A9", "4. Lookup")
	s.mustSetContent("B9", "2")
	s.mustSetContent("C9", "=VLOOKUP(B9,F9:G11,2,0)")
	s.mustSetContent("F9", "1")
	s.mustSetContent("G9", "one")
	s.mustSetContent("F10", "2")
	s.mustSetContent("G10", "two")
	s.mustSetContent("F11", "3")
	s.mustSetContent("G11", "three")
}

// populateLookup demonstrates VLOOKUP/MATCH/INDEX over a small table.
func (s *Server) populateLookup() {
	s.mustSetContent("A1", "Lookup demo")

	s.mustSetContent("A3", "SKU")
	s.mustSetContent("B3", "Price")
	rows := [][2]string{{"A100", "9.99"}, {"A200", "14.50"}, {"A300", "22.00"}}
	for i, row := range rows {
		r := i + 4
		s.mustSetContent(address.CellID(fmt.Sprintf("A%d", r)), row[0])
		s.mustSetContent(address.CellID(fmt.Sprintf("B%d", r)), row[1])
	}

	s.mustSetContent("D3", "Query")
	s.mustSetContent("E3", "A200")
	s.mustSetContent("D4", "Price")
	s.mustSetContent("E4", "=VLOOKUP(E3,A4:B6,2,0)")
	s.mustSetContent("D5", "Row index")
	s.mustSetContent("E5", "=MATCH(E3,A4:A6,0)")
	s.mustSetContent("D6", "Via INDEX")
	s.mustSetContent("E6", "=INDEX(A4:B6,E5,2)")
}

// populateDates demonstrates NOW/TODAY/DATE/DATEDIF.
func (s *Server) populateDates() {
	s.mustSetContent("A1", "Date demo")

	s.mustSetContent("A3", "Today (ms epoch)")
	s.mustSetContent("B3", "=TODAY()")

	s.mustSetContent("A4", "Start")
	s.mustSetContent("B4", "=DATE(2024,1,1)")
	s.mustSetContent("A5", "End")
	s.mustSetContent("B5", "=DATE(2024,12,31)")
	s.mustSetContent("A6", "Days between")
	s.mustSetContent("B6", `=DATEDIF(B4,B5,"D")`)
}

// populateMatrix builds an NxN grid of source values plus a derived grid
// applying a formula relative to each source cell, to exercise broad
// dependency-graph fan-out.
func (s *Server) populateMatrix() {
	s.mustSetContent("A1", "Reactive matrix")

	const n = 10
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			src := address.Format(r+2, c)
			s.mustSetContent(src, fmt.Sprintf("%d", r*n+c+1))
		}
	}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			src := address.Format(r+2, c)
			dst := address.Format(r+2, c+n+2)
			s.mustSetContent(dst, fmt.Sprintf("=%s*2", src))
		}
	}

	sumRow := n + 3
	for c := 0; c < n; c++ {
		colLetter := address.ToLetters(c + n + 2 + 1)
		s.mustSetContent(address.CellID(fmt.Sprintf("%s%d", colLetter, sumRow)),
			fmt.Sprintf("=SUM(%s%d:%s%d)", colLetter, 2, colLetter, n+1))
	}
}

// populateConditionals exercises COUNTIF/SUMIF/SUMIFS.
func (s *Server) populateConditionals() {
	s.mustSetContent("A1", "Conditional aggregates")

	s.mustSetContent("A3", "Region")
	s.mustSetContent("B3", "Amount")
	data := [][2]string{{"east", "100"}, {"west", "50"}, {"east", "75"}, {"west", "20"}, {"east", "10"}}
	for i, d := range data {
		r := i + 4
		s.mustSetContent(address.CellID(fmt.Sprintf("A%d", r)), d[0])
		s.mustSetContent(address.CellID(fmt.Sprintf("B%d", r)), d[1])
	}

	s.mustSetContent("D3", "East count")
	s.mustSetContent("E3", `=COUNTIF(A4:A8,"east")`)
	s.mustSetContent("D4", "East total")
	s.mustSetContent("E4", `=SUMIF(A4:A8,"east",B4:B8)`)
	s.mustSetContent("D5", "East >= 50")
	s.mustSetContent("E5", `=SUMIFS(B4:B8,A4:A8,"east",B4:B8,">=50")`)
}

type UpdateRequest struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Value   string `json:"value"`
	Example string `json:"example,omitempty"`
}

type UpdateResponse struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Raw     string `json:"raw"`
	Display string `json:"display"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) sendInitialState(conn *websocket.Conn) {
	for _, id := range s.Engine.Model().NonEmptyCells() {
		if err := conn.WriteJSON(s.createUpdateResponse(id)); err != nil {
			log.Printf("initial state write failed: %v", err)
			return
		}
	}
}

func (s *Server) createUpdateResponse(id address.CellID) UpdateResponse {
	resp := UpdateResponse{
		Type: "cell_updated",
		ID:   string(id),
		Raw:  s.Engine.Model().GetContent(id),
	}
	res, ok := s.Engine.GetResult(id)
	if !ok {
		return resp
	}
	if res.Err != nil {
		resp.Display = "#ERROR"
		resp.Error = res.Err.Message
	} else {
		resp.Display = res.Value.String()
	}
	return resp
}

// Start starts the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	dir := "assets/spreadsheet"
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Printf("Warning: static directory %s not found. Current dir: %s", dir, func() string { d, _ := os.Getwd(); return d }())
	} else {
		log.Printf("Serving static files from %s", dir)
	}

	fs := http.FileServer(http.Dir(dir))
	mux.Handle("/", fs)
	mux.HandleFunc("/ws", s.HandleWebSocket)
	if s.Store != nil {
		mux.HandleFunc("/sheets/", s.handleSheetPersistence)
	}

	log.Printf("Starting spreadsheet server at http://%s", addr)
	return http.ListenAndServe(addr, mux)
}

// handleSheetPersistence serves GET (load) and PUT (save) of the engine's
// exported JSON state under /sheets/{id}, backed by Store.
func (s *Server) handleSheetPersistence(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len("/sheets/"):]
	if id == "" {
		http.Error(w, "missing sheet id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		state, ok, err := s.Store.Load(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(state)

	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.Engine.ImportState(body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.Store.Save(r.Context(), id, body); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.broadcastReset()
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
