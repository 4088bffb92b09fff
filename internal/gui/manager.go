package gui

import (
	"sync"

	"edge-tuner/internal/logger"

	"fyne.io/fyne/v2"
)

type Manager struct {
	window     fyne.Window
	controller *Controller
	view       *View
	logger     logger.Logger
	once       sync.Once
}

func NewManager(window fyne.Window, coord Coordinator, log logger.Logger, previewMax int) *Manager {
	manager := &Manager{
		window: window,
		logger: log,
	}

	manager.view = NewView(window, coord.Parameters(), previewMax)
	manager.controller = NewController(coord, log)

	manager.view.SetController(manager.controller)
	manager.controller.SetView(manager.view)

	log.Info("GUIManager", "initialized", map[string]interface{}{
		"window_title": window.Title(),
	})
	return manager
}

func (m *Manager) GetWindow() fyne.Window {
	return m.window
}

func (m *Manager) Show() {
	m.view.Show()
	m.logger.Info("GUIManager", "GUI displayed", nil)
}

// Shutdown detaches the view from the coordinator so renders finishing
// after the window closes are not delivered to it.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		m.controller.Detach()
		m.logger.Info("GUIManager", "shutdown completed", nil)
	})
}
