package config

import (
	"fmt"
	"os"
)

func Template() string {
	return dashctlTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(Template()), 0o600)
}

const dashctlTemplate = `host = "0.0.0.0"
port = 5000
# auto | generic | fixed
schema = "auto"
accept_timeout = "1s"
read_poll_interval = "500ms"
max_line_bytes = 65536
render_interval = "100ms"
slow_after = "1s"
stale_after = "3s"
# empty disables the status API
status_addr = ""
cors_origins = ["http://localhost:3000"]
log_file = "dashctl.log"
log_level = "info"

# Extra controller layouts. An entry whose type matches a built-in replaces it.
[[layouts]]
type = "xbox"
min_axes = 6
min_buttons = 4
steering = { axis = 0, convert = "identity" }
brake = { axis = 2, convert = "trigger" }
gas = { axis = 5, convert = "trigger" }
auto_mode = 3
gears = [
  { button = 0, gear = "D" },
  { button = 1, gear = "R" },
]
`
