package config

import "github.com/joho/godotenv"

// LoadEnv loads variables from a .env file in the working directory.
// Variables already present in the environment are not overridden.
// A missing file is reported with an error satisfying os.IsNotExist.
func LoadEnv() error {
	return godotenv.Load()
}
