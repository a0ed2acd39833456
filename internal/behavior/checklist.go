package behavior

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
)

//go:embed checklists.yaml
var checklistYAML []byte

// checklists holds the fixed issue labels per severity level. Each level
// has a distinct set; labels are never cross-applied between levels.
var checklists map[model.Level][]string

func init() {
	var raw struct {
		Green  []string `yaml:"green"`
		Yellow []string `yaml:"yellow"`
		Red    []string `yaml:"red"`
	}
	if err := yaml.Unmarshal(checklistYAML, &raw); err != nil {
		panic(fmt.Sprintf("behavior: bad embedded checklists: %v", err))
	}
	checklists = map[model.Level][]string{
		model.LevelGreen:  raw.Green,
		model.LevelYellow: raw.Yellow,
		model.LevelRed:    raw.Red,
	}
}

// Checklist returns the issue labels for a level.
func Checklist(level model.Level) []string {
	return append([]string(nil), checklists[level]...)
}

// ValidIssue reports whether the issue label belongs to the level's
// checklist.
func ValidIssue(level model.Level, issue string) bool {
	for _, is := range checklists[level] {
		if is == issue {
			return true
		}
	}
	return false
}
