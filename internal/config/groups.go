package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/iwtcode/modbusAdapter/internal/domain/models"
	"gopkg.in/yaml.v3"
)

// TaskKinds: допустимые виды задач опроса.
var TaskKinds = map[string]bool{
	"holding": true,
	"input":   true,
	"float":   true,
	"double":  true,
	"uint32":  true,
	"int32":   true,
	"signal":  true,
	"bits":    true,
	"coils":   true,
}

// GroupDefinition описывает группу опроса в файле конфигурации.
type GroupDefinition struct {
	ID            string                  `yaml:"id" toml:"id"`
	Interval      Duration                `yaml:"interval" toml:"interval"`
	RetryCount    int                     `yaml:"retry_count" toml:"retry_count"`
	RetryInterval Duration                `yaml:"retry_interval" toml:"retry_interval"`
	Tasks         []models.TaskDefinition `yaml:"tasks" toml:"tasks"`
}

type groupsFile struct {
	Groups []GroupDefinition `yaml:"groups" toml:"groups"`
}

// Duration разбирается из строки вида "500ms" или "2s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// LoadGroups читает описание групп; формат определяется по расширению.
func LoadGroups(path string) ([]GroupDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл групп '%s': %w", path, err)
	}

	var file groupsFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("ошибка разбора YAML '%s': %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &file); err != nil {
			return nil, fmt.Errorf("ошибка разбора TOML '%s': %w", path, err)
		}
	default:
		return nil, fmt.Errorf("неподдерживаемый формат файла групп: %s", ext)
	}

	seen := make(map[string]bool, len(file.Groups))
	for i := range file.Groups {
		for j := range file.Groups[i].Tasks {
			file.Groups[i].Tasks[j] = NormalizeTask(file.Groups[i].Tasks[j])
		}
		g := file.Groups[i]
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("группа #%d: %w", i+1, err)
		}
		if seen[g.ID] {
			return nil, fmt.Errorf("группа '%s' описана повторно", g.ID)
		}
		seen[g.ID] = true
	}
	return file.Groups, nil
}

// Validate проверяет описание группы и ее задач.
func (g GroupDefinition) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("не задан id группы")
	}
	if g.Interval.Duration <= 0 {
		return fmt.Errorf("группа '%s': интервал должен быть положительным", g.ID)
	}
	if g.RetryCount < 0 {
		return fmt.Errorf("группа '%s': retry_count не может быть отрицательным", g.ID)
	}
	for _, t := range g.Tasks {
		if err := ValidateTask(t); err != nil {
			return fmt.Errorf("группа '%s': %w", g.ID, err)
		}
	}
	return nil
}

// NormalizeTask приводит вид к нижнему регистру и подставляет count = 1.
func NormalizeTask(t models.TaskDefinition) models.TaskDefinition {
	t.Kind = strings.ToLower(strings.TrimSpace(t.Kind))
	if t.Count == 0 {
		t.Count = 1
	}
	return t
}

// ValidateTask проверяет вид задачи и количество элементов.
func ValidateTask(t models.TaskDefinition) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("не задано имя задачи")
	}
	if !TaskKinds[strings.ToLower(t.Kind)] {
		return fmt.Errorf("задача '%s': неизвестный вид '%s'", t.Name, t.Kind)
	}
	if t.Count == 0 {
		return fmt.Errorf("задача '%s': count должен быть положительным", t.Name)
	}
	return nil
}
