package armkin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/referenceframe"
)

// Config is the engine configuration as read from a JSON/YAML file.
type Config struct {
	ModelFile string `json:"model_file,omitempty" mapstructure:"model_file"`

	IK            IKConfig            `json:"ik"             mapstructure:"ik"`
	MultiSolution MultiSolutionConfig `json:"multi_solution" mapstructure:"multi_solution"`
	Planning      PlanningConfig      `json:"planning"       mapstructure:"planning"`
	Jacobian      JacobianConfig      `json:"jacobian"       mapstructure:"jacobian"`

	// Not serialized
	Logger logging.Logger `json:"-" mapstructure:"-"`
}

// DefaultConfig returns a config with every section at its defaults.
func DefaultConfig() Config {
	return Config{
		IK:            DefaultIKConfig(),
		MultiSolution: DefaultMultiSolutionConfig(),
		Planning:      DefaultPlanningConfig(),
		Jacobian:      DefaultJacobianConfig(),
	}
}

// Validate fills unset fields with defaults and reports every invalid field.
func (cfg *Config) Validate() error {
	cfg.IK = cfg.IK.withDefaults()
	cfg.MultiSolution = cfg.MultiSolution.withDefaults()
	cfg.Planning = cfg.Planning.withDefaults()
	cfg.Jacobian = cfg.Jacobian.withDefaults()

	return multierr.Combine(
		cfg.IK.Validate(),
		cfg.MultiSolution.Validate(),
		cfg.Planning.Validate(),
		cfg.Jacobian.Validate(),
	)
}

// LoadModel loads the model file or returns the default model.
// Returns (model, fromFile) where fromFile indicates if loaded from file
func (cfg *Config) LoadModel(logger logging.Logger) (*KinematicModel, bool) {
	if cfg.ModelFile == "" {
		if logger != nil {
			logger.Debug("No model file specified, using default SO-101 model")
		}
		return DefaultModel(), false
	}

	// Handle relative paths using ARMKIN_DATA
	path := cfg.ModelFile
	if !filepath.IsAbs(path) {
		dataDir := os.Getenv("ARMKIN_DATA")
		if dataDir == "" {
			dataDir = "/tmp"
		}
		path = filepath.Join(dataDir, path)
	}

	model, err := LoadModelFromFile(path)
	if err != nil {
		if logger != nil {
			logger.Warnf("Failed to load model from %s: %v, using default model", path, err)
		}
		return DefaultModel(), false
	}

	if logger != nil {
		logger.Infof("Successfully loaded model %q from %s", model.Name, path)
	}
	return model, true
}

// ModelFileFormat is the on-disk layout of a kinematic model.
type ModelFileFormat struct {
	Name   string                 `json:"name"`
	Joints map[string]*LimitEntry `json:"joints"`
	Links  *LinkLengths           `json:"links,omitempty"`
}

// LimitEntry is one joint's range in degrees.
type LimitEntry struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// LoadModelFromFile loads and validates a model from a JSON file. Joints or
// link lengths missing from the file keep their default values.
func LoadModelFromFile(filePath string) (*KinematicModel, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var fileFormat ModelFileFormat
	if err := json.Unmarshal(data, &fileFormat); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}

	limits := DefaultJointLimits
	for name, entry := range fileFormat.Joints {
		j, err := ParseJoint(name)
		if err != nil {
			return nil, fmt.Errorf("model file: %w", err)
		}
		if entry != nil {
			limits[j] = referenceframe.Limit{Min: entry.Min, Max: entry.Max}
		}
	}

	lengths := DefaultLinkLengths
	if fileFormat.Links != nil {
		lengths = *fileFormat.Links
	}

	name := fileFormat.Name
	if name == "" {
		name = filepath.Base(filePath)
	}

	model, err := NewKinematicModel(name, limits, lengths)
	if err != nil {
		return nil, fmt.Errorf("model validation failed: %w", err)
	}
	return model, nil
}

// SaveModelToFile writes a model to a JSON file.
func SaveModelToFile(filePath string, model *KinematicModel) error {
	fileFormat := ModelFileFormat{
		Name:   model.Name,
		Joints: make(map[string]*LimitEntry, NumJoints),
		Links:  &model.Lengths,
	}
	for j, l := range model.Limits {
		fileFormat.Joints[Joint(j).String()] = &LimitEntry{Min: l.Min, Max: l.Max}
	}

	data, err := json.MarshalIndent(fileFormat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}

	return nil
}
