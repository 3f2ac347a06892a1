package config

import (
	"fmt"
	"os"
	"strings"
)

// Template returns the starter file for kind: provider, consumer or tree.
func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "provider":
		return providerTemplate, nil
	case "consumer":
		return consumerTemplate, nil
	case "tree":
		return treeTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite && fileExists(path) {
		return fmt.Errorf("config already exists: %s", path)
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const sessionTemplate = `
[session]
connect_timeout = "5s"
write_timeout = "10s"
keepalive_interval = "10s"
dead_after = "30s"
request_timeout = "10s"
backoff_initial = "250ms"
backoff_multiplier = 2.0
backoff_max = "5s"
backoff_jitter = true
`

const providerTemplate = `name = "emberctl"
addr = ":9000"
admin_listen_addr = "127.0.0.1:9090"
tree_file = "tree.yaml"
cors_origins = ["http://localhost:3000"]

[[functions]]
path = "0.3"
command = ["echo", "reset"]
timeout = "5s"
` + sessionTemplate

const consumerTemplate = `name = "consumer"
addr = "127.0.0.1:9000"
max_connect_attempts = 5
` + sessionTemplate

const treeTemplate = `children:
  - identifier: device
    description: sample device
    children:
      - identifier: gain
        type: real
        value: 0
        minimum: -64
        maximum: 12
        access: readWrite
      - identifier: name
        type: string
        value: studio
        access: readWrite
      - identifier: router
        type: oneToOne
        targetCount: 8
        sourceCount: 8
        connections:
          "0": [0]
      - identifier: reset
        arguments:
          - {type: string, name: note}
        result:
          - {type: string, name: output}
          - {type: integer, name: exitCode}
`
