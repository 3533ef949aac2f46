package store

import (
	"fmt"
	"strconv"

	"github.com/kejdas/local-chess-analyzer/internal/engine"
)

func (d *DB) seedDefaultSettings() error {
	for _, s := range defaultSettings() {
		res := d.gdb.Where(Setting{Key: s.Key}).FirstOrCreate(&s)
		if res.Error != nil {
			return fmt.Errorf("seed setting %s: %w", s.Key, res.Error)
		}
	}
	return nil
}

// Settings returns every setting as a key/value map.
func (d *DB) Settings() (map[string]string, error) {
	var rows []Setting
	if err := d.gdb.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// Setting returns one value, or "" when absent.
func (d *DB) Setting(key string) (string, error) {
	var row Setting
	err := d.gdb.Where("key = ?", key).Limit(1).Find(&row).Error
	if err != nil {
		return "", fmt.Errorf("load setting %s: %w", key, err)
	}
	return row.Value, nil
}

// PutSettings upserts the given key/value pairs.
func (d *DB) PutSettings(values map[string]string) error {
	for k, v := range values {
		row := Setting{Key: k, Value: v}
		if err := d.gdb.Save(&row).Error; err != nil {
			return fmt.Errorf("save setting %s: %w", k, err)
		}
	}
	return nil
}

// EngineConfig resolves the stored settings into an engine
// configuration. Missing or unparseable rows fall back to the
// documented defaults.
func (d *DB) EngineConfig() (engine.Config, error) {
	settings, err := d.Settings()
	if err != nil {
		return engine.Config{}, err
	}
	cfg := engine.Config{
		Path:       settings[SettingEnginePath],
		Threads:    intSetting(settings, SettingThreads, DefaultThreads),
		HashMB:     intSetting(settings, SettingHashMB, DefaultHashMB),
		Depth:      intSetting(settings, SettingDepth, DefaultDepth),
		MoveTimeMS: intSetting(settings, SettingMoveTimeMS, DefaultMoveTimeMS),
	}
	if cfg.Path == "" {
		cfg.Path = DefaultEnginePath
	}
	return cfg, nil
}

func intSetting(settings map[string]string, key string, fallback int) int {
	n, err := strconv.Atoi(settings[key])
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
