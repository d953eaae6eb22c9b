package main

import (
	"log"

	collab "github.com/AGDonato/Synapse-sub011"
	"github.com/AGDonato/Synapse-sub011/pkg/server/store"
	"github.com/AGDonato/Synapse-sub011/pkg/structs"
	"github.com/spf13/viper"
)

func main() {
	viper.SetDefault("listen", ":8035")
	viper.SetDefault("allowed_origins", []string{})
	viper.SetDefault("activity_db", "")

	viper.SetConfigName("collabd")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/synapse")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("COLLABD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Failed to read config: %v", err)
		}
	}

	var activity structs.ActivityRecorder
	if path := viper.GetString("activity_db"); path != "" {
		activityLog, err := store.Open(path)
		if err != nil {
			log.Fatalf("Failed to open activity log: %v", err)
		}
		defer activityLog.Close()
		activity = activityLog
	}

	server := collab.New(viper.GetStringSlice("allowed_origins"), activity)

	listen := viper.GetString("listen")
	log.Printf("Collaboration server listening on %s", listen)
	if err := server.App.Listen(listen); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
