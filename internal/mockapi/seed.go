package mockapi

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

// Seed is the optional YAML file the mock backend starts from.
//
//	admin:
//	  email: admin@electrophobia.dev
//	  password: electrophobia
//	blogs:
//	  - title: Getting Started with Arduino
//	    category: Tutorials
//	    isPublished: true
type Seed struct {
	Admin       SeedAdmin `yaml:"admin"`
	Experiences []Record  `yaml:"experiences"`
	Projects    []Record  `yaml:"projects"`
	Blogs       []Record  `yaml:"blogs"`
	Products    []Record  `yaml:"products"`
	Contacts    []Record  `yaml:"contacts"`
}

// SeedAdmin is the single admin account. PasswordHash wins over Password.
type SeedAdmin struct {
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (Seed, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(bytes)
}

// ParseSeed decodes seed YAML.
func ParseSeed(data []byte) (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}
	return seed, nil
}

func (s Seed) records() map[string][]Record {
	return map[string][]Record{
		"experiences": s.Experiences,
		"projects":    s.Projects,
		"blogs":       s.Blogs,
		"products":    s.Products,
		"contacts":    s.Contacts,
	}
}
