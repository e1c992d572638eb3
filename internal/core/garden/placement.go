package garden

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
	"github.com/golang/geo/r3"
)

// EntityKind distinguishes placed decorations.
type EntityKind string

const (
	KindTree    EntityKind = "tree"
	KindFirefly EntityKind = "firefly"
)

const (
	treeDensity    = 0.3
	treeMinHeight  = 1.0
	treeMaxHeight  = 6.0
	treeLift       = 1.0
	treeHueJitter  = 0.05
	treeLightness  = 0.1
	fireflyDensity = 0.2
	fireflyMinH    = 1.0
	fireflyMaxH    = 10.0
	fireflyLift    = 0.5

	flutterAmplitude = 0.1
	driftAmplitude   = 0.2
	pulseRate        = 2.0
	pulseOpacity     = 0.5
	pulseScale       = 0.3
)

// FireflyColor is the fixed glow color of every firefly.
var FireflyColor = domain.Hex(0xEABC3A)

// Up is the surface normal of the island plane.
var Up = r3.Vector{X: 0, Y: 0, Z: 1}

// Entity is a placed decoration. Every parameter is fixed at placement time;
// animation is derived from them and elapsed time only.
type Entity struct {
	Kind       EntityKind
	Vertex     int
	Base       r3.Vector
	Color      domain.Color
	Yaw        float64
	Phase      float64
	Speed      float64
	DriftDir   r3.Vector
	DriftSpeed float64
}

// Pose is the rendered state of an entity at one instant.
type Pose struct {
	Position r3.Vector
	Opacity  float64
	Scale    float64
}

// Point is the wire form of a vector.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func PointOf(v r3.Vector) Point {
	return Point{X: v.X, Y: v.Y, Z: v.Z}
}

func (p Point) Vector() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

type entityJSON struct {
	Kind       EntityKind   `json:"kind"`
	Vertex     int          `json:"vertex"`
	Base       Point        `json:"base"`
	Color      domain.Color `json:"color"`
	Yaw        float64      `json:"yaw,omitempty"`
	Phase      float64      `json:"phase,omitempty"`
	Speed      float64      `json:"speed,omitempty"`
	DriftDir   *Point       `json:"drift_dir,omitempty"`
	DriftSpeed float64      `json:"drift_speed,omitempty"`
}

// MarshalJSON writes vectors as snake_case points. Trees carry no drift
// direction.
func (e Entity) MarshalJSON() ([]byte, error) {
	w := entityJSON{
		Kind:       e.Kind,
		Vertex:     e.Vertex,
		Base:       PointOf(e.Base),
		Color:      e.Color,
		Yaw:        e.Yaw,
		Phase:      e.Phase,
		Speed:      e.Speed,
		DriftSpeed: e.DriftSpeed,
	}
	if e.Kind == KindFirefly {
		d := PointOf(e.DriftDir)
		w.DriftDir = &d
	}
	return json.Marshal(w)
}

func (e *Entity) UnmarshalJSON(b []byte) error {
	var w entityJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("garden: entity: %w", err)
	}
	*e = Entity{
		Kind:       w.Kind,
		Vertex:     w.Vertex,
		Base:       w.Base.Vector(),
		Color:      w.Color,
		Yaw:        w.Yaw,
		Phase:      w.Phase,
		Speed:      w.Speed,
		DriftSpeed: w.DriftSpeed,
	}
	if w.DriftDir != nil {
		e.DriftDir = w.DriftDir.Vector()
	}
	return nil
}

func (p Pose) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Position Point   `json:"position"`
		Opacity  float64 `json:"opacity"`
		Scale    float64 `json:"scale"`
	}{PointOf(p.Position), p.Opacity, p.Scale})
}

// Flutter is the vertical bob along Up at time t.
func (e Entity) Flutter(t float64) float64 {
	return math.Sin(t*e.Speed+e.Phase) * flutterAmplitude
}

// PoseAt evaluates the entity at time t. Trees are static; fireflies bob,
// wander in a small loop around their base and pulse. Replaying any t yields
// the same pose.
func (e Entity) PoseAt(t float64) Pose {
	if e.Kind != KindFirefly {
		return Pose{Position: e.Base, Opacity: 1, Scale: 1}
	}

	drift := math.Sin(t*e.DriftSpeed+e.Phase) * driftAmplitude
	side := math.Cos(t*e.DriftSpeed+e.Phase) * driftAmplitude
	perp := Up.Cross(e.DriftDir).Normalize()

	position := e.Base.
		Add(Up.Mul(e.Flutter(t))).
		Add(e.DriftDir.Mul(drift)).
		Add(perp.Mul(side))

	pulse := 0.5 + 0.5*math.Sin(t*pulseRate+e.Phase)
	return Pose{
		Position: position,
		Opacity:  pulseOpacity + pulseOpacity*pulse,
		Scale:    1 + pulseScale*pulse,
	}
}

// PlaceEntities scatters trees and then fireflies over the height field.
// Each pass draws once per vertex, in vertex order, so the layout is fixed by
// the stream seed. Acousticness controls forest density and liveness the
// firefly count.
func PlaceEntities(hf *HeightField, f domain.FeatureVector, p domain.ColorPalette, s *Stream) []Entity {
	var entities []Entity

	treeChance := treeDensity * f.Acousticness
	for i, h := range hf.Heights {
		if s.Float64() >= treeChance {
			continue
		}
		if h < treeMinHeight || h >= treeMaxHeight {
			continue
		}
		entities = append(entities, newTree(hf, i, h, p, s))
	}

	fireflyChance := fireflyDensity * f.Liveness
	for i, h := range hf.Heights {
		if s.Float64() >= fireflyChance {
			continue
		}
		if h < fireflyMinH || h > fireflyMaxH {
			continue
		}
		entities = append(entities, newFirefly(hf, i, h, s))
	}

	return entities
}

func newTree(hf *HeightField, i int, h float64, p domain.ColorPalette, s *Stream) Entity {
	x, y := hf.Vertex(i)
	dh := (s.Float64() - 0.5) * treeHueJitter
	dl := (s.Float64() - 0.5) * treeLightness
	yaw := s.Float64() * 2 * math.Pi
	return Entity{
		Kind:   KindTree,
		Vertex: i,
		Base:   r3.Vector{X: x, Y: y, Z: h + treeLift},
		Color:  p.Tree.OffsetHSL(dh, 0, dl),
		Yaw:    yaw,
	}
}

func newFirefly(hf *HeightField, i int, h float64, s *Stream) Entity {
	x, y := hf.Vertex(i)
	dir := r3.Vector{X: (s.Float64() - 0.5) * 2, Y: (s.Float64() - 0.5) * 2}
	if dir.Norm() == 0 {
		dir = r3.Vector{X: 1}
	}
	return Entity{
		Kind:       KindFirefly,
		Vertex:     i,
		Base:       r3.Vector{X: x, Y: y, Z: h + fireflyLift},
		Color:      FireflyColor,
		Phase:      s.Float64() * 2 * math.Pi,
		Speed:      0.5 + s.Float64(),
		DriftDir:   dir.Normalize(),
		DriftSpeed: 0.05 + s.Float64()*0.05,
	}
}

// CountKind returns how many entities are of kind k.
func CountKind(entities []Entity, k EntityKind) int {
	n := 0
	for _, e := range entities {
		if e.Kind == k {
			n++
		}
	}
	return n
}
