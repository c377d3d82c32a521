package commands

import (
	"math"

	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/utils"
)

// PanViewportCommand drags the canvas by a screen-space delta
type PanViewportCommand struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Validate validates the command
func (c PanViewportCommand) Validate() error {
	return finiteValues(c.DX, c.DY)
}

const maxZoomSteps = 64

// ZoomViewportCommand zooms around a screen anchor. A non-zero Steps uses
// the wheel step instead of Factor: positive zooms in, negative zooms out.
type ZoomViewportCommand struct {
	Factor  float64 `json:"factor"`
	Steps   int     `json:"steps"`
	AnchorX float64 `json:"anchor_x"`
	AnchorY float64 `json:"anchor_y"`
}

// Validate validates the command
func (c ZoomViewportCommand) Validate() error {
	if c.Steps == 0 && c.Factor == 0 {
		return pkgerrors.NewValidationError("either factor or steps is required")
	}
	if c.Steps > maxZoomSteps || c.Steps < -maxZoomSteps {
		return pkgerrors.NewValidationError("too many zoom steps")
	}
	return finiteValues(c.AnchorX, c.AnchorY)
}

// FitViewportCommand fits every node on screen
type FitViewportCommand struct {
	Padding *float64 `json:"padding,omitempty"`
}

// Validate validates the command
func (c FitViewportCommand) Validate() error {
	if c.Padding != nil && (*c.Padding < 0 || math.IsNaN(*c.Padding) || math.IsInf(*c.Padding, 0)) {
		return pkgerrors.NewValidationError("padding must be a non-negative number")
	}
	return nil
}

// CenterViewportCommand centres a graph point, or a node when NodeID is set
type CenterViewportCommand struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	NodeID string  `json:"node_id,omitempty"`
}

// Validate validates the command
func (c CenterViewportCommand) Validate() error {
	return finiteValues(c.X, c.Y)
}

// ResizeViewportCommand reports a new screen size
type ResizeViewportCommand struct {
	Width  float64 `json:"width" validate:"gte=0"`
	Height float64 `json:"height" validate:"gte=0"`
}

// Validate validates the command
func (c ResizeViewportCommand) Validate() error {
	if err := finiteValues(c.Width, c.Height); err != nil {
		return err
	}
	return utils.ValidateStruct(c)
}

// DragMinimapCommand moves the main view to a point picked on the minimap
type DragMinimapCommand struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Validate validates the command
func (c DragMinimapCommand) Validate() error {
	return finiteValues(c.X, c.Y)
}

func finiteValues(values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return pkgerrors.NewValidationError("coordinates must be finite numbers")
		}
	}
	return nil
}
