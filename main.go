package main // import "github.com/caolo-game/frontline"

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/caolo-game/frontline/rt/rooms"
	"github.com/caolo-game/frontline/rt/ws"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/thedevsaddam/renderer"
)

type App struct {
	hub *ws.Hub
	rnd *renderer.Render
}

type Config struct {
	Port               string
	Host               string
	CorsOrigin         string
	Membership         rooms.Policy
	AnnounceDepartures bool
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func NewConfig() (*Config, error) {
	policy, ok := rooms.ParsePolicy(getEnv("TEAM_MEMBERSHIP", "accumulate"))
	if !ok {
		return nil, fmt.Errorf("TEAM_MEMBERSHIP must be accumulate or exclusive")
	}
	announce, err := strconv.ParseBool(getEnv("ANNOUNCE_DEPARTURES", "false"))
	if err != nil {
		return nil, fmt.Errorf("ANNOUNCE_DEPARTURES: %w", err)
	}
	return &Config{
		Port:               getEnv("PORT", "3001"),
		Host:               getEnv("HOST", "0.0.0.0"),
		CorsOrigin:         getEnv("CORS_ORIGIN", "http://localhost:5173"),
		Membership:         policy,
		AnnounceDepartures: announce,
	}, nil
}

func NewApp(config *Config) *App {
	hub := ws.NewHub(ws.Config{
		Policy:             config.Membership,
		AnnounceDepartures: config.AnnounceDepartures,
		AllowedOrigin:      config.CorsOrigin,
	})
	return &App{hub, renderer.New()}
}

type health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (a *App) getHealth(w http.ResponseWriter, r *http.Request) {
	a.rnd.JSON(w, http.StatusOK, health{Status: "ok", Message: "Relay is running"})
}

func (a *App) serveSocket(w http.ResponseWriter, r *http.Request) {
	ws.ServeWs(a.hub, w, r)
}

func (a *App) InitRouter() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/health", handlers.CompressHandler(http.HandlerFunc(a.getHealth))).Methods("GET")
	r.HandleFunc("/socket", a.serveSocket).Methods("GET")
	return r
}

func (a *App) Handler(config *Config) http.Handler {
	router := a.InitRouter()
	recoveryRouter := handlers.RecoveryHandler()(router)
	loggedRouter := handlers.CombinedLoggingHandler(os.Stdout, recoveryRouter)
	return handlers.CORS(
		handlers.AllowCredentials(),
		handlers.AllowedOrigins([]string{config.CorsOrigin}),
		handlers.AllowedMethods([]string{"GET", "OPTIONS"}),
	)(loggedRouter)
}

func main() {
	log.Println("Frontline relay")
	config, err := NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	app := NewApp(config)
	go app.hub.Run(context.Background())

	addr := fmt.Sprintf("%s:%s", config.Host, config.Port)
	log.Printf("Serving on %s (membership: %s, announce departures: %v)", addr, config.Membership, config.AnnounceDepartures)
	log.Fatal(http.ListenAndServe(addr, app.Handler(config)))
}
