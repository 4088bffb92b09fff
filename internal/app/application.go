package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"edge-tuner/internal/config"
	"edge-tuner/internal/gui"
	"edge-tuner/internal/gui/widgets"
	"edge-tuner/internal/highgui"
	"edge-tuner/internal/logger"
	"edge-tuner/internal/opencv/memory"
	"edge-tuner/internal/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

const (
	AppName    = "Edge Tuner"
	AppID      = "io.github.edge-tuner"
	AppVersion = "1.0.0"
	// WindowTitle is shared with the OpenCV window.
	WindowTitle = highgui.WindowName
)

type shutdownHandler interface {
	Shutdown()
}

type Application struct {
	cfg           *config.Config
	coordinator   *pipeline.Coordinator
	memoryManager *memory.Manager
	logger        logger.Logger
	shutdownables []shutdownHandler

	fyneApp    fyne.App
	window     fyne.Window
	guiManager *gui.Manager

	ctx      context.Context
	cancel   context.CancelFunc
	shutdown chan struct{}
	once     sync.Once
}

func NewApplication(cfg *config.Config, log logger.Logger) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	memoryManager := memory.NewManager(log)
	coordinator := pipeline.NewCoordinator(memoryManager, log,
		pipeline.WithFillColor(cfg.FillColor),
		pipeline.WithRenderTimeout(cfg.RenderTimeout),
	)

	log.Info("Application", "starting application", map[string]interface{}{
		"version":    AppVersion,
		"ui":         cfg.UI,
		"fill_color": fmt.Sprintf("#%02x%02x%02x", cfg.FillColor.R, cfg.FillColor.G, cfg.FillColor.B),
	})

	return &Application{
		cfg:           cfg,
		coordinator:   coordinator,
		memoryManager: memoryManager,
		logger:        log,
		ctx:           ctx,
		cancel:        cancel,
		shutdown:      make(chan struct{}),
		shutdownables: []shutdownHandler{
			memoryManager,
			coordinator,
		},
	}
}

// Load reads the image and renders it once with the default parameters.
func (a *Application) Load(path string) error {
	if _, err := a.coordinator.Load(path); err != nil {
		return err
	}

	a.logger.Info("Application", "Initial processing...", nil)
	if _, err := a.coordinator.Render(a.ctx); err != nil {
		return fmt.Errorf("initial processing failed: %w", err)
	}
	return nil
}

// Run starts the render worker and blocks in the configured front-end.
func (a *Application) Run() error {
	a.setupSignalHandling()
	a.coordinator.Start()
	defer a.initiateShutdown()

	switch a.cfg.UI {
	case config.UIHighGUI:
		return highgui.New(a.coordinator, a.logger).Run(a.ctx)
	default:
		return a.runFyne()
	}
}

func (a *Application) runFyne() error {
	app.SetMetadata(fyne.AppMetadata{
		ID:      AppID,
		Name:    AppName,
		Version: AppVersion,
		Build:   1,
	})

	a.fyneApp = app.NewWithID(AppID)
	a.fyneApp.Settings().SetTheme(gui.NewTheme(a.cfg.FillColor))
	a.window = a.fyneApp.NewWindow(WindowTitle)
	a.window.Resize(calculateMinimumWindowSize())
	a.window.CenterOnScreen()
	a.window.SetMaster()

	a.guiManager = gui.NewManager(a.window, a.coordinator, a.logger, a.cfg.PreviewMax)
	a.shutdownables = append(a.shutdownables, a.guiManager)
	a.setupMenu()

	a.window.SetCloseIntercept(func() {
		a.logger.Info("Application", "shutdown requested via window close", nil)
		a.initiateShutdown()
		a.window.Close()
	})

	a.guiManager.Show()

	go func() {
		<-a.shutdown
		fyne.Do(func() {
			a.fyneApp.Quit()
		})
	}()

	a.fyneApp.Run()
	return nil
}

func (a *Application) setupMenu() {
	aboutAction := func() {
		a.showAbout()
	}

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", aboutAction),
	)
	a.window.SetMainMenu(fyne.NewMainMenu(helpMenu))
}

func (a *Application) showAbout() {
	metadata := a.fyneApp.Metadata()

	name := metadata.Name
	if name == "" {
		name = AppName
	}
	version := metadata.Version
	if version == "" {
		version = AppVersion
	}

	stats := a.memoryManager.Stats()
	aboutContent := container.NewVBox(
		widget.NewLabel(name),
		widget.NewLabel(fmt.Sprintf("Version: %s", version)),
		widget.NewLabel(""),
		widget.NewLabel("Pipeline: blur, canny, morphology, hull, composite"),
		widget.NewLabel(fmt.Sprintf("Tracked Mats: %d (%d bytes)", stats.ActiveMats, stats.UsedBytes)),
		widget.NewLabel(""),
		widget.NewLabel(fmt.Sprintf("Go: %s", runtime.Version())),
		widget.NewLabel(fmt.Sprintf("Platform: %s/%s", runtime.GOOS, runtime.GOARCH)),
	)

	dialog.ShowCustom("About", "Close", aboutContent, a.window)
}

func calculateMinimumWindowSize() fyne.Size {
	imageDisplayWidth := widgets.ImageAreaWidth * 2
	toolbarHeight := float32(50)
	parametersHeight := float32(260)

	return fyne.Size{
		Width:  float32(imageDisplayWidth + 100),
		Height: float32(widgets.ImageAreaHeight) + toolbarHeight + parametersHeight + 60,
	}
}

func (a *Application) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			a.logger.Info("Application", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			a.initiateShutdown()
		case <-a.ctx.Done():
		}
	}()
}

// Close releases everything without running a front-end.
func (a *Application) Close() {
	a.initiateShutdown()
}

func (a *Application) initiateShutdown() {
	a.once.Do(func() {
		close(a.shutdown)

		a.logger.Info("Application", "shutdown sequence initiated", map[string]interface{}{
			"components": len(a.shutdownables),
		})

		a.cancel()

		for i := len(a.shutdownables) - 1; i >= 0; i-- {
			component := a.shutdownables[i]

			done := make(chan struct{})
			go func() {
				defer close(done)
				component.Shutdown()
			}()

			select {
			case <-done:
			case <-time.After(10 * time.Second):
				a.logger.Warning("Application", "component shutdown timeout", map[string]interface{}{
					"component": strings.TrimPrefix(fmt.Sprintf("%T", component), "*"),
				})
			}
		}

		a.logger.Info("Application", "shutdown sequence completed", nil)
	})
}
