package config

import (
	"os"
	"strings"
)

// normalize expands path fields and fills API keys from the environment when
// the config file leaves them empty.
func (c *Config) normalize() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.STT.BaseURL = strings.TrimRight(strings.TrimSpace(c.STT.BaseURL), "/")
	c.Vision.BaseURL = strings.TrimRight(strings.TrimSpace(c.Vision.BaseURL), "/")
	c.Commerce.BaseURL = strings.TrimRight(strings.TrimSpace(c.Commerce.BaseURL), "/")
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)

	if strings.TrimSpace(c.LLM.APIKey) == "" {
		c.LLM.APIKey = strings.TrimSpace(os.Getenv("PLUGSCAN_LLM_API_KEY"))
	}
	if strings.TrimSpace(c.Commerce.APIKey) == "" {
		c.Commerce.APIKey = strings.TrimSpace(os.Getenv("PLUGSCAN_COMMERCE_API_KEY"))
	}
	return nil
}
