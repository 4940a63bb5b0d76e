package stagedef

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"sdrprep/internal/services"
)

//go:embed catalog.toml
var defaultCatalog []byte

const defaultMaxAttempts = 3

type catalogFile struct {
	Stages []Stage `toml:"stage"`
}

// LoadDefault parses the embedded stage catalog.
func LoadDefault() ([]Stage, error) {
	return parse(defaultCatalog, "embedded catalog")
}

// LoadFile parses an operator-supplied stage catalog.
func LoadFile(path string) ([]Stage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "read stage catalog", path, err)
	}
	return parse(data, path)
}

// Load returns the catalog from path when non-empty, the embedded default
// otherwise.
func Load(path string) ([]Stage, error) {
	if path == "" {
		return LoadDefault()
	}
	return LoadFile(path)
}

func parse(data []byte, source string) ([]Stage, error) {
	var file catalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "parse stage catalog", source, err)
	}
	if len(file.Stages) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "", "parse stage catalog", source+": no stages defined", nil)
	}

	stages := file.Stages
	for i := range stages {
		if stages[i].MaxAttempts <= 0 {
			stages[i].MaxAttempts = defaultMaxAttempts
		}
	}
	if err := Validate(stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// Validate rejects malformed catalogs before any stage executes: duplicate or
// empty ids, stages with nothing to do, unknown check kinds, and invalid
// device descriptors all fail load.
func Validate(stages []Stage) error {
	seen := make(map[string]struct{}, len(stages))
	for _, stage := range stages {
		if stage.ID == "" {
			return services.Wrap(services.ErrConfiguration, "", "validate stages", "stage with empty id", nil)
		}
		if _, dup := seen[stage.ID]; dup {
			return services.Wrap(services.ErrConfiguration, stage.ID, "validate stages", "duplicate stage id", nil)
		}
		seen[stage.ID] = struct{}{}

		if len(stage.Actions) == 0 && stage.Verification == nil {
			return services.Wrap(services.ErrConfiguration, stage.ID, "validate stages", "stage has neither actions nor verification", nil)
		}
		for _, action := range stage.Actions {
			if len(action.Argv) == 0 {
				return services.Wrap(services.ErrConfiguration, stage.ID, "validate stages", "action with empty argv", nil)
			}
		}
		for _, action := range stage.Repair {
			if len(action.Argv) == 0 {
				return services.Wrap(services.ErrConfiguration, stage.ID, "validate stages", "repair command with empty argv", nil)
			}
		}
		if stage.Verification != nil && len(stage.Verification.Argv) == 0 {
			return services.Wrap(services.ErrConfiguration, stage.ID, "validate stages", "verification with empty argv", nil)
		}
		if err := validateCheck(stage.ID, stage.Precondition); err != nil {
			return err
		}
		if stage.Device != nil {
			if err := stage.Device.Validate(); err != nil {
				return services.Wrap(services.ErrConfiguration, stage.ID, "validate stages", err.Error(), nil)
			}
		}
	}
	return nil
}

func validateCheck(stageID string, check *Check) error {
	if check == nil {
		return nil
	}
	if _, ok := knownCheckKinds[check.Kind]; !ok {
		return services.Wrap(services.ErrConfiguration, stageID, "validate stages",
			fmt.Sprintf("unknown precondition kind %q", check.Kind), nil)
	}
	if check.Kind == CheckCommand {
		if len(check.Argv) == 0 {
			return services.Wrap(services.ErrConfiguration, stageID, "validate stages", "command precondition with empty argv", nil)
		}
		return nil
	}
	if check.Target == "" {
		return services.Wrap(services.ErrConfiguration, stageID, "validate stages",
			fmt.Sprintf("%s precondition requires a target", check.Kind), nil)
	}
	return nil
}

// ByID returns the stage with the given id.
func ByID(stages []Stage, id string) (Stage, bool) {
	for _, stage := range stages {
		if stage.ID == id {
			return stage, true
		}
	}
	return Stage{}, false
}
