package config

import "github.com/joho/godotenv"

// loadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set are never overwritten.
func loadDotEnv(path string) error {
	return godotenv.Load(path)
}
