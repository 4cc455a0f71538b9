package internal

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/oxhollow/ferrite/internal/util"
)

var Config *Configuration

type HoursDuration time.Duration

func NewHoursDuration(hours int64) HoursDuration {
	return HoursDuration(time.Duration(hours) * time.Hour)
}

func (hd HoursDuration) MarshalJSON() ([]byte, error) {
	hours := float64(time.Duration(hd)) / float64(time.Hour)
	return json.Marshal(hours)
}

func (hd *HoursDuration) UnmarshalJSON(data []byte) error {
	var hours float64
	if err := json.Unmarshal(data, &hours); err != nil {
		return err
	}
	*hd = HoursDuration(hours * float64(time.Hour))
	return nil
}

type Configuration struct {
	SessionExpiresHours HoursDuration `json:"session_expires_hours"`
	QueueSize           int64         `json:"queue_size"`
	JobRetentionDays    int64         `json:"job_retention_days"`
}

func InitializeConfiguration() {
	Config = &Configuration{
		SessionExpiresHours: NewHoursDuration(30 * 24),
		QueueSize:           3,
		JobRetentionDays:    90,
	}

	configFileExists, _ := util.PathExists("config.json")
	if !configFileExists {
		b, err := json.MarshalIndent(Config, "", "    ")
		if err != nil {
			log.Fatal(err)
		}
		configFile, err := os.Create("config.json")
		if err != nil {
			log.Fatal(err)
		}
		if _, err := configFile.Write(b); err != nil {
			log.Fatal(err)
		}
	} else {
		configBytes, err := os.ReadFile("config.json")
		if err != nil {
			log.Fatal(err)
		}
		if err := json.Unmarshal(configBytes, &Config); err != nil {
			log.Fatal(err)
		}
	}

	applyEnvOverrides(Config)
}

// applyEnvOverrides lets deployments tune the config file values through
// the environment without editing config.json.
func applyEnvOverrides(config *Configuration) {
	if v, ok := os.LookupEnv("FERRITE_QUEUE_SIZE"); ok {
		config.QueueSize = util.MustAtoi64(v)
	}
	if v, ok := os.LookupEnv("FERRITE_JOB_RETENTION_DAYS"); ok {
		config.JobRetentionDays = util.MustAtoi64(v)
	}
	if v, ok := os.LookupEnv("FERRITE_SESSION_EXPIRES_HOURS"); ok {
		config.SessionExpiresHours = NewHoursDuration(util.MustAtoi64(v))
	}
}

func UpdateConfiguration(config *Configuration) error {
	b, err := json.MarshalIndent(config, "", "    ")
	if err != nil {
		return err
	}

	configFile, err := os.Create("config.json")
	if err != nil {
		return err
	}

	if _, err := configFile.Write(b); err != nil {
		return err
	}

	Config = config

	return nil
}
