package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/openecglab/ECGAnnotator/src/config"
	"github.com/openecglab/ECGAnnotator/src/logging"
)

// commandContext carries the persistent flag values and the lazily loaded
// configuration shared by every subcommand.
type commandContext struct {
	configFlag      *string
	logLevelFlag    *string
	dataDirFlag     *string
	annotationsFlag *string

	cfg     *config.Config
	cfgPath string
	cfgSeen bool
}

func newCommandContext(configFlag, logLevelFlag, dataDirFlag, annotationsFlag *string) *commandContext {
	return &commandContext{
		configFlag:      configFlag,
		logLevelFlag:    logLevelFlag,
		dataDirFlag:     dataDirFlag,
		annotationsFlag: annotationsFlag,
	}
}

// ensureConfig loads the config file once and layers the persistent flags on
// top of it. Flags always win over file values.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, path, found, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}

	if lvl := strings.TrimSpace(*c.logLevelFlag); lvl != "" {
		cfg.Log.Level = strings.ToLower(lvl)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if dir := strings.TrimSpace(*c.dataDirFlag); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return nil, fmt.Errorf("--data-dir: %w", err)
		}
		cfg.Paths.DataDir = expanded
	}
	if store := strings.TrimSpace(*c.annotationsFlag); store != "" {
		expanded, err := config.ExpandPath(store)
		if err != nil {
			return nil, fmt.Errorf("--annotations: %w", err)
		}
		cfg.Paths.AnnotationsFile = expanded
		// keep the audit trail beside the overridden store
		stem := strings.TrimSuffix(expanded, filepath.Ext(expanded))
		cfg.Paths.AuditFile = stem + "_audit.jsonl"
	}

	logging.SetLogLevel(cfg.Log.Level)
	if found {
		logging.Debugf("config: loaded %s", path)
	} else {
		logging.Debugf("config: no file found, using defaults")
	}

	c.cfg = cfg
	c.cfgPath = path
	c.cfgSeen = found
	return cfg, nil
}
