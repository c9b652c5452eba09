package stealth

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/linkedin-outreach/pkg/config"
	"github.com/linkedin-outreach/pkg/logger"
)

type Point struct {
	X float64
	Y float64
}

// MouseController generates bezier movement paths so clicks are preceded
// by plausible pointer travel instead of teleporting.
type MouseController struct {
	config *config.MouseMovementConfig
	log    *zap.SugaredLogger
	rand   *rand.Rand
}

func NewMouseController(cfg *config.MouseMovementConfig) *MouseController {
	return &MouseController{
		config: cfg,
		log:    logger.WithComponent("mouse"),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MouseController) GeneratePath(start, end Point) []Point {
	if !m.config.Enabled {
		return []Point{start, end}
	}

	dist := math.Sqrt(math.Pow(end.X-start.X, 2) + math.Pow(end.Y-start.Y, 2))

	numSteps := int(dist / 3.0)
	if numSteps < 30 {
		numSteps = 30
	}
	if numSteps > 200 {
		numSteps = 200
	}

	path := m.generateBezierPath(start, end, numSteps)

	if m.config.OvershootEnabled && m.rand.Float64() < 0.3 {
		path = m.addOvershoot(path, end)
	}

	if m.config.MicroMovements {
		path = m.addMicroMovements(path)
	}

	return path
}

func (m *MouseController) generateBezierPath(start, end Point, numSteps int) []Point {
	controlPoints := m.generateControlPoints(start, end)
	path := make([]Point, 0, numSteps)

	for i := 0; i <= numSteps; i++ {
		t := float64(i) / float64(numSteps)
		t = m.applyEasing(t)
		path = append(path, m.bezierPoint(controlPoints, t))
	}

	return path
}

func (m *MouseController) generateControlPoints(start, end Point) []Point {
	complexity := m.config.BezierComplexity
	if complexity < 2 {
		complexity = 2
	}

	points := make([]Point, complexity+2)
	points[0] = start
	points[len(points)-1] = end

	dx := end.X - start.X
	dy := end.Y - start.Y
	distance := math.Sqrt(dx*dx + dy*dy)

	// Zero distance would divide by zero below
	if distance == 0 {
		return []Point{start, end}
	}

	for i := 1; i < len(points)-1; i++ {
		progress := float64(i) / float64(len(points)-1)

		deviation := distance * 0.3 * (m.rand.Float64() - 0.5)

		perpX := -dy / distance * deviation
		perpY := dx / distance * deviation

		points[i] = Point{
			X: start.X + dx*progress + perpX,
			Y: start.Y + dy*progress + perpY,
		}
	}

	return points
}

func (m *MouseController) applyEasing(t float64) float64 {
	return t * t * (3 - 2*t)
}

func (m *MouseController) bezierPoint(points []Point, t float64) Point {
	n := len(points) - 1
	x, y := 0.0, 0.0
	for i, p := range points {
		b := bernstein(n, i, t)
		x += p.X * b
		y += p.Y * b
	}
	return Point{X: x, Y: y}
}

func bernstein(n, k int, t float64) float64 {
	return float64(binomial(n, k)) * math.Pow(t, float64(k)) * math.Pow(1-t, float64(n-k))
}

func binomial(n, k int) int {
	if k > n-k {
		k = n - k
	}
	result := 1
	for i := 0; i < k; i++ {
		result = result * (n - i) / (i + 1)
	}
	return result
}

func (m *MouseController) addOvershoot(path []Point, target Point) []Point {
	if len(path) == 0 {
		return path
	}

	last := path[len(path)-1]
	dx := target.X - last.X
	dy := target.Y - last.Y

	overshootDistance := 5 + m.rand.Float64()*15

	overshoot := Point{
		X: target.X + dx*overshootDistance/100,
		Y: target.Y + dy*overshootDistance/100,
	}

	path = append(path, overshoot)

	correctionPath := m.generateBezierPath(overshoot, target, 20)
	path = append(path, correctionPath[1:]...)

	return path
}

func (m *MouseController) addMicroMovements(path []Point) []Point {
	result := make([]Point, 0, len(path))

	for i, p := range path {
		jitterX := (m.rand.Float64() - 0.5) * 2
		jitterY := (m.rand.Float64() - 0.5) * 2

		result = append(result, Point{
			X: p.X + jitterX,
			Y: p.Y + jitterY,
		})

		if i > 0 && i < len(path)-1 && m.rand.Float64() < 0.1 {
			result = append(result, Point{
				X: p.X + (m.rand.Float64()-0.5)*0.5,
				Y: p.Y + (m.rand.Float64()-0.5)*0.5,
			})
		}
	}

	return result
}
