package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/coupling"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
)

var trajectoryHeader = []string{
	"step", "time", "particle",
	"x", "y", "z",
	"vx", "vy", "vz",
	"wx", "wy", "wz",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Case       string             `json:"case"`
	Preset     string             `json:"preset,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	FluidDt    float64            `json:"fluid_dt"`
	SubDt      float64            `json:"sub_dt"`
	Duration   float64            `json:"duration"`
	Steps      int                `json:"steps"`
	Particles  int                `json:"particles"`
	Integrator string             `json:"integrator"`
	Repulsion  string             `json:"repulsion"`
	Metrics    map[string]float64 `json:"metrics"`
}

// State is one particle's kinematics in a frame.
type State struct {
	ID              int
	Center          r3.Vec
	LinearVelocity  r3.Vec
	AngularVelocity r3.Vec
}

// Frame is the registry contents after one coupling step.
type Frame struct {
	Step      int
	Time      float64
	Particles []State
}

// Recorder collects frames from a running driver.
type Recorder struct {
	Frames []Frame
	clock  float64
}

// OnStep appends a frame. Time is the sum of fluid dts seen so far, so the
// bootstrap step gets a time even though the solver reports none.
func (r *Recorder) OnStep(rep *coupling.StepReport) {
	r.clock += rep.FluidDt
	f := Frame{Step: rep.Step, Time: r.clock, Particles: make([]State, len(rep.Particles))}
	for i, p := range rep.Particles {
		f.Particles[i] = State{
			ID:              p.ID,
			Center:          p.Center,
			LinearVelocity:  p.LinearVelocity,
			AngularVelocity: p.AngularVelocity,
		}
	}
	r.Frames = append(r.Frames, f)
}

// Track returns one particle's centres over the recorded frames.
func (r *Recorder) Track(id int) (times []float64, centers []r3.Vec) {
	return Track(r.Frames, id)
}

func Track(frames []Frame, id int) ([]float64, []r3.Vec) {
	times := make([]float64, 0, len(frames))
	centers := make([]r3.Vec, 0, len(frames))
	for _, f := range frames {
		for _, p := range f.Particles {
			if p.ID == id {
				times = append(times, f.Time)
				centers = append(centers, p.Center)
				break
			}
		}
	}
	return times, centers
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (s *Store) Save(meta RunMetadata, frames []Frame) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runID := fmt.Sprintf("%s_%d", meta.Case, meta.Timestamp.UnixNano())
	meta.ID = runID
	runDir := filepath.Join(s.baseDir, runID)

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	if err := s.write(runDir, data, frames); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return runID, nil
}

func (s *Store) write(runDir string, meta []byte, frames []Frame) error {
	if err := os.WriteFile(filepath.Join(runDir, metadataFile), append(meta, '\n'), 0644); err != nil {
		return err
	}

	csvFile, err := os.Create(filepath.Join(runDir, trajectoryFile))
	if err != nil {
		return err
	}
	if err := WriteTrajectory(csvFile, frames); err != nil {
		csvFile.Close()
		return err
	}
	return csvFile.Close()
}

// WriteTrajectory writes frames as CSV, one row per particle per frame.
func WriteTrajectory(out io.Writer, frames []Frame) error {
	w := csv.NewWriter(out)
	if err := w.Write(trajectoryHeader); err != nil {
		return err
	}

	for _, f := range frames {
		for _, p := range f.Particles {
			row := []string{strconv.Itoa(f.Step), formatFloat(f.Time), strconv.Itoa(p.ID)}
			for _, v := range []r3.Vec{p.Center, p.LinearVelocity, p.AngularVelocity} {
				row = append(row, formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every run under the base directory, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadTrajectory(runID string) ([]Frame, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadTrajectory(file)
}

// ReadTrajectory parses CSV written by WriteTrajectory. Rows sharing a step
// form one frame.
func ReadTrajectory(in io.Reader) ([]Frame, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(trajectoryHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Frame{}, nil
	}

	var frames []Frame
	for line, record := range records[1:] {
		var vals [9]float64
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(record[3+j], 64); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", trajectoryFile, line+2, err)
			}
		}
		step, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", trajectoryFile, line+2, err)
		}
		t, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", trajectoryFile, line+2, err)
		}
		id, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", trajectoryFile, line+2, err)
		}

		if len(frames) == 0 || frames[len(frames)-1].Step != step {
			frames = append(frames, Frame{Step: step, Time: t})
		}
		f := &frames[len(frames)-1]
		f.Particles = append(f.Particles, State{
			ID:              id,
			Center:          r3.Vec{X: vals[0], Y: vals[1], Z: vals[2]},
			LinearVelocity:  r3.Vec{X: vals[3], Y: vals[4], Z: vals[5]},
			AngularVelocity: r3.Vec{X: vals[6], Y: vals[7], Z: vals[8]},
		})
	}
	return frames, nil
}

type exportData struct {
	RunMetadata
	Frames []Frame `json:"frames"`
}

// ExportJSON writes the metadata and every frame as one JSON document.
func ExportJSON(out io.Writer, meta RunMetadata, frames []Frame) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exportData{RunMetadata: meta, Frames: frames})
}
