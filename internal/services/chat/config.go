package chat

import "fmt"

const MaxRecapLimit = 20

type Config struct {
	// RecapLimit is the number of chats returned by the recap view when the caller gives none.
	RecapLimit int
	// TrimReplies strips surrounding whitespace from whole-response replies before they are stored.
	TrimReplies bool
}

func (c *Config) Validate() error {
	if c.RecapLimit <= 0 {
		return fmt.Errorf("recap_limit must be positive")
	}
	if c.RecapLimit > MaxRecapLimit {
		return fmt.Errorf("recap_limit cannot exceed %d", MaxRecapLimit)
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		RecapLimit:  3,
		TrimReplies: true,
	}
}
