package internal

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Envs converts KEY=VALUE pairs (e.g. os.Environ()) into a map, values may
// themselves contain '='
func Envs(pairs []string) map[string]string {
	envs := make(map[string]string)
	for _, env := range pairs {
		if s := strings.Split(env, "="); len(s) > 1 {
			envs[s[0]] = strings.Join(s[1:], "=")
		}
	}
	return envs
}

// LoadEnvFile merges the dotenv file referenced by ENV_FILE into envs; keys
// already present in envs win over the file
func LoadEnvFile(envs map[string]string) error {
	envFile := envs["ENV_FILE"]
	if envFile == "" {
		return nil
	}
	fileEnvs, err := godotenv.Read(envFile)
	if err != nil {
		return errors.Wrapf(err, "unable to read env file %s", envFile)
	}
	for key, value := range fileEnvs {
		if _, ok := envs[key]; !ok {
			envs[key] = value
		}
	}
	return nil
}
