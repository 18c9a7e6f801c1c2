package main // import "github.com/caolo-game/frontline/client"

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/caolo-game/frontline/client/backdrop"
	"github.com/caolo-game/frontline/client/camera"
	"github.com/caolo-game/frontline/client/input"
	"github.com/caolo-game/frontline/client/loop"
	"github.com/caolo-game/frontline/client/relay"
	"github.com/caolo-game/frontline/client/render"
	"github.com/caolo-game/frontline/client/scene"
)

type App struct {
	Config *Config
	Loop   *loop.Loop
	Link   *relay.Link
}

func NewApp(config *Config) *App {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	world := scene.New(scene.Config{Buildings: config.Buildings, Seed: seed})
	cam := camera.New(float64(config.Width) / float64(config.Height))
	raster := render.NewRaster(config.Width, config.Height)
	l := loop.New(loop.Config{
		FPS:         config.FPS,
		Speed:       config.Speed,
		Sensitivity: config.Sensitivity,
		LogFPS:      config.LogFPS,
	}, world, cam, raster)
	return &App{Config: config, Loop: l}
}

// Connect attaches the relay link. Failing to connect is not fatal, the
// scene still renders locally.
func (a *App) Connect(ctx context.Context) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	link, err := relay.Dial(dialCtx, a.Config.Server)
	if err != nil {
		log.Printf("Playing offline: %v", err)
		return
	}
	a.Link = link
	a.Loop.SetReporter(link)
	if team := a.Config.Team; team != "" {
		go func() {
			select {
			case <-link.Welcomed():
				link.JoinTeam(team)
			case <-link.Done():
			}
		}()
	}
}

func (a *App) Run(ctx context.Context, script io.Reader) error {
	events := make(chan input.Event)
	go func() {
		if err := input.Script(ctx, script, events); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Input stopped: %v", err)
		}
	}()
	backdrops := backdrop.Load(ctx, a.Config.Environment)
	return a.Loop.Run(ctx, events, backdrops)
}

func main() {
	configPath := flag.String("config", "", "YAML client config")
	server := flag.String("server", "", "relay address, host:port")
	inputPath := flag.String("input", "-", "input script, - for stdin")
	offline := flag.Bool("offline", false, "do not connect to the relay")
	flag.Parse()

	config, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *server != "" {
		config.Server = *server
	}
	if *offline {
		config.Offline = true
	}

	script := io.Reader(os.Stdin)
	if *inputPath != "-" {
		f, err := os.Open(*inputPath)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		script = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Println("Frontline client")
	app := NewApp(config)
	if !config.Offline {
		app.Connect(ctx)
	}
	err = app.Run(ctx, script)
	if app.Link != nil {
		app.Link.Close()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
	log.Printf("Stopped at %d fps", app.Loop.FPS())
}
