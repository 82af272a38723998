package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
)

const (
	defaultScoreLimit = 10
	maxScoreLimit     = 100
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HealthResponse is served on /healthz
type HealthResponse struct {
	Status  string                `json:"status"`
	Session string                `json:"session"`
	Phase   Phase                 `json:"phase"`
	Clients int                   `json:"clients"`
	Loops   map[string]TaskStatus `json:"loops"`
}

// SetupRoutes configures HTTP routes. db may be nil.
func SetupRoutes(hub *Hub, auth *Auth, db *DB, publicURL string) *http.ServeMux {
	mux := http.NewServeMux()
	log := hub.log

	// WebSocket endpoint; ?enc=msgpack selects binary state frames
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		player := ""
		if auth.Enabled() {
			name, err := auth.ValidateToken(r.URL.Query().Get("token"))
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			player = name
		}

		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("upgrade error", "error", err)
			return
		}

		hub.TrackConnect(ip)

		binary := r.URL.Query().Get("enc") == "msgpack"
		client := NewClient(hub, conn, ip, player, binary)
		enc := "json"
		if binary {
			enc = "msgpack"
		}
		client.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{SessionID: hub.session.ID, Player: player, Encoding: enc}})
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		eng := hub.session.Engine
		resp := HealthResponse{
			Status:  "ok",
			Session: hub.session.ID,
			Phase:   eng.game.Phase(),
			Clients: hub.ClientCount(),
			Loops:   eng.Health(),
		}
		status := http.StatusOK
		for _, l := range resp.Loops {
			if !l.Alive {
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, status, resp)
	})

	mux.HandleFunc("/scores", func(w http.ResponseWriter, r *http.Request) {
		limit := defaultScoreLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxScoreLimit)
		}
		rows := []ScoreRow{}
		if db != nil {
			top, err := db.TopScores(limit)
			if err != nil {
				log.Error("top scores", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if top != nil {
				rows = top
			}
		}
		writeJSON(w, http.StatusOK, rows)
	})

	mux.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		data, err := ProtocolSchema()
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/schema+json")
		w.Write(data)
	})

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Name     string `json:"name"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		token, err := auth.Login(req.Name, req.Password, extractIP(r))
		switch {
		case errors.Is(err, ErrRateLimited):
			http.Error(w, err.Error(), http.StatusTooManyRequests)
		case errors.Is(err, ErrBadPassword):
			http.Error(w, err.Error(), http.StatusUnauthorized)
		case err != nil:
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			writeJSON(w, http.StatusOK, map[string]string{"token": token})
		}
	})

	// QR code pointing phones at the game
	mux.HandleFunc("/join.png", func(w http.ResponseWriter, r *http.Request) {
		png, err := qrcode.Encode(publicURL, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "max-age=3600")
		w.Write(png)
	})

	return mux
}
