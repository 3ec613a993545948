package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"auraroll/internal/rewards"
)

// RewardTableConfig represents the structure of the reward table YAML file.
type RewardTableConfig struct {
	Rewards []RewardConfig `yaml:"rewards"`
}

// RewardConfig defines one weighted reward in the YAML file.
type RewardConfig struct {
	ID     string `yaml:"id"`     // Inventory item definition id
	Weight int64  `yaml:"weight"` // Relative draw weight, must be positive
}

// LoadRewardTableFile loads the reward table from a YAML file.
func LoadRewardTableFile(path string) ([]rewards.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reward table: %w", err)
	}

	var cfg RewardTableConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse reward table %s: %w", path, err)
	}

	entries := make([]rewards.Entry, 0, len(cfg.Rewards))
	for _, r := range cfg.Rewards {
		entries = append(entries, rewards.Entry{RewardID: strings.TrimSpace(r.ID), Weight: r.Weight})
	}
	return entries, nil
}

// ParseRewardWeights parses "id:weight,id:weight" into table entries.
func ParseRewardWeights(raw string) ([]rewards.Entry, error) {
	var entries []rewards.Entry
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, weight, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf(`REWARD_WEIGHTS must be "id:weight,id:weight", got %q`, pair)
		}
		w, err := strconv.ParseInt(strings.TrimSpace(weight), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("REWARD_WEIGHTS weight for %q: %w", id, err)
		}
		entries = append(entries, rewards.Entry{RewardID: strings.TrimSpace(id), Weight: w})
	}
	return entries, nil
}

// RewardEntries returns the configured reward table entries, preferring
// RewardTableFile over RewardWeights.
func (c *Config) RewardEntries() ([]rewards.Entry, error) {
	if c.RewardTableFile != "" {
		return LoadRewardTableFile(c.RewardTableFile)
	}
	return ParseRewardWeights(c.RewardWeights)
}

// RewardTable builds the validated reward table.
func (c *Config) RewardTable() (*rewards.Table, error) {
	entries, err := c.RewardEntries()
	if err != nil {
		return nil, err
	}
	table, err := rewards.NewTable(entries)
	if err != nil {
		return nil, fmt.Errorf("reward table: %w", err)
	}
	return table, nil
}
