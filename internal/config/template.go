package config

// DefaultConfigYAML returns the commented template written by
// `drivewatch init`. Values match SetDefaults.
func DefaultConfigYAML() string {
	return `# drivewatch configuration
# Generated by: drivewatch init
#
# Every key can be overridden from the environment:
#   DRIVEWATCH_<SECTION>_<KEY>, e.g. DRIVEWATCH_MODEL_BACKEND=http

logger:
  level: info            # debug | info | warn | error
  format: console        # console | json
  service_name: drivewatch
  log_file: ""           # rotated JSON log file; empty disables
  max_size: 10           # MB per file
  max_backups: 3
  max_age: 7             # days
  compress: false
  add_source: false

# Inference backend used by "run", "shell" and "serve".
#   stub      deterministic rules, no model
#   static    canned output (demos)
#   http      OpenAI-compatible chat completions (Ollama, Groq, llama.cpp server)
#   bedrock   AWS Bedrock Converse API
#   genai     Google Gemini
#   llama-cli local llama.cpp binary run against preferred_path/fallback_path
model:
  backend: stub
  preferred_path: ""
  fallback_path: ""
  endpoint: http://localhost:11434/v1/chat/completions
  api_key: ""
  model: ""
  temperature: 0.2
  max_tokens: 512
  timeout: 1m0s
  requests_per_minute: 0
  region: ""
  access_key_id: ""
  secret_access_key: ""
  binary: llama-cli

# Scenario gate thresholds. First match wins, in this order:
#   1. drowsy + confidence >= drowsy_no_hands + hands off
#   2. drowsy + confidence >= drowsy_confident
#   3. lane departed + confidence >= lane_departure + speed >= lane_min_speed_kph
#   4. forward collision risk >= forward_collision
gate:
  drowsy_no_hands: 0.8
  drowsy_confident: 0.9
  lane_departure: 0.7
  lane_min_speed_kph: 60
  forward_collision: 0.75

# Safety gate: an accepted action name is blocked for the cooldown window.
# Exempt actions always pass and are never tracked. log_safety_event and
# request_safe_mode stay exempt even when left out of this list.
safety:
  cooldown: 5s
  exempt:
    - log_safety_event
    - request_safe_mode

vehicle:
  max_events: 100

audit:
  path: ""               # hash-chained JSONL; empty disables

journal:
  path: ""               # SQLite run history; empty disables

server:
  grpc_addr: 127.0.0.1:7443
`
}
