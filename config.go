package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Seconds is a duration expressed in (fractional) seconds in config files.
type Seconds float64

// Duration converts to time.Duration
func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// Config contains every tunable of the server
type Config struct {
	BoardWidth  int `json:"boardWidth"`
	BoardHeight int `json:"boardHeight"`
	GridSize    int `json:"gridSize"` // collision grid is GridSize x GridSize cells

	Spawn      SpawnConfig      `json:"spawn"`
	Limits     LimitConfig      `json:"limits"`
	Loops      LoopConfig       `json:"loops"`
	Decay      DecayConfig      `json:"decay"`
	Commands   CommandConfig    `json:"commands"`
	Supervisor SupervisorConfig `json:"supervisor"`
	Network    NetworkConfig    `json:"network"`
	Storage    StorageConfig    `json:"storage"`

	Seed     int64  `json:"seed"` // 0 = seed from the clock
	LogLevel string `json:"logLevel"`
}

// SpawnConfig holds per-class spawn probabilities (per spawner tick) and cooldowns
type SpawnConfig struct {
	BoatChance         float64 `json:"boatChance"`
	JetChance          float64 `json:"jetChance"`
	HelicopterChance   float64 `json:"helicopterChance"`
	FuelChance         float64 `json:"fuelChance"`
	BoatCooldown       Seconds `json:"boatCooldown"`
	JetCooldown        Seconds `json:"jetCooldown"`
	HelicopterCooldown Seconds `json:"helicopterCooldown"`
	FuelCooldown       Seconds `json:"fuelCooldown"`
}

// LimitConfig caps live entities per kind and the pool's free lists
type LimitConfig struct {
	MaxEnemies    int `json:"maxEnemies"`
	MaxMissiles   int `json:"maxMissiles"`
	MaxFuelDepots int `json:"maxFuelDepots"`
	PoolSize      int `json:"poolSize"`
}

// LoopConfig holds the interval of every periodic task
type LoopConfig struct {
	Spawner    Seconds `json:"spawner"`
	Boat       Seconds `json:"boat"`
	Jet        Seconds `json:"jet"`
	Helicopter Seconds `json:"helicopter"`
	Missile    Seconds `json:"missile"`
	Fuel       Seconds `json:"fuel"`
	Collision  Seconds `json:"collision"`
	State      Seconds `json:"state"`
	Broadcast  Seconds `json:"broadcast"`
}

// DecayConfig decouples the state loop tick rate from game balance
type DecayConfig struct {
	FuelTicks  int `json:"fuelTicks"`  // state ticks per -1 fuel
	ScoreTicks int `json:"scoreTicks"` // state ticks per +1 score
}

// CommandConfig tunes the command pipeline
type CommandConfig struct {
	QueueCapacity int     `json:"queueCapacity"`
	RatePerSecond float64 `json:"ratePerSecond"`
}

// SupervisorConfig tunes loop restarts and shutdown
type SupervisorConfig struct {
	MaxRestartAttempts  int     `json:"maxRestartAttempts"`
	HealthCheckInterval Seconds `json:"healthCheckInterval"`
	ShutdownTimeout     Seconds `json:"shutdownTimeout"`
}

// NetworkConfig contains transport settings
type NetworkConfig struct {
	HTTPAddr        string `json:"httpAddr"`
	SSHAddr         string `json:"sshAddr"` // empty disables the SSH transport
	SSHHostKeyPath  string `json:"sshHostKeyPath"`
	PasswordHash    string `json:"passwordHash"` // bcrypt; empty = open access
	AuthSecret      string `json:"authSecret"`   // empty = /ws needs no token
	PublicURL       string `json:"publicURL"`
	MaxConnsPerIP   int    `json:"maxConnsPerIP"`
	MaxTotalConns   int    `json:"maxTotalConns"`
	MaxMessagesRate int    `json:"maxMessagesRate"` // per connection, per second
}

// StorageConfig points at the event journal database
type StorageConfig struct {
	DatabasePath string `json:"databasePath"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		BoardWidth:  25,
		BoardHeight: 25,
		GridSize:    4,
		Spawn: SpawnConfig{
			BoatChance:         0.15,
			JetChance:          0.1,
			HelicopterChance:   0.1,
			FuelChance:         0.05,
			BoatCooldown:       1.5,
			JetCooldown:        2.0,
			HelicopterCooldown: 2.5,
			FuelCooldown:       2.0,
		},
		Limits: LimitConfig{
			MaxEnemies:    20,
			MaxMissiles:   10,
			MaxFuelDepots: 5,
			PoolSize:      100,
		},
		Loops: LoopConfig{
			Spawner:    0.5,
			Boat:       0.2,
			Jet:        0.2,
			Helicopter: 0.2,
			Missile:    0.075,
			Fuel:       0.2,
			Collision:  0.05,
			State:      0.15,
			Broadcast:  0.1,
		},
		Decay: DecayConfig{
			FuelTicks:  3,
			ScoreTicks: 5,
		},
		Commands: CommandConfig{
			QueueCapacity: 64,
			RatePerSecond: 30,
		},
		Supervisor: SupervisorConfig{
			MaxRestartAttempts:  3,
			HealthCheckInterval: 5,
			ShutdownTimeout:     2,
		},
		Network: NetworkConfig{
			HTTPAddr:        ":8080",
			SSHAddr:         ":2200",
			PublicURL:       "http://localhost:8080",
			MaxConnsPerIP:   5,
			MaxTotalConns:   100,
			MaxMessagesRate: 50,
		},
		Storage: StorageConfig{
			DatabasePath: ":memory:",
		},
		LogLevel: "INFO",
	}
}

// LoadConfig builds a config from defaults, an optional JSON file, an optional
// dotenv file and RIVERRAID_* environment variables, in that order.
func LoadConfig(path, envFile string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	ints := map[string]*int{
		"RIVERRAID_BOARD_WIDTH":          &c.BoardWidth,
		"RIVERRAID_BOARD_HEIGHT":         &c.BoardHeight,
		"RIVERRAID_GRID_SIZE":            &c.GridSize,
		"RIVERRAID_MAX_ENEMIES":          &c.Limits.MaxEnemies,
		"RIVERRAID_MAX_MISSILES":         &c.Limits.MaxMissiles,
		"RIVERRAID_MAX_FUEL_DEPOTS":      &c.Limits.MaxFuelDepots,
		"RIVERRAID_POOL_SIZE":            &c.Limits.PoolSize,
		"RIVERRAID_FUEL_TICKS":           &c.Decay.FuelTicks,
		"RIVERRAID_SCORE_TICKS":          &c.Decay.ScoreTicks,
		"RIVERRAID_QUEUE_CAPACITY":       &c.Commands.QueueCapacity,
		"RIVERRAID_MAX_RESTART_ATTEMPTS": &c.Supervisor.MaxRestartAttempts,
		"RIVERRAID_MAX_CONNS_PER_IP":     &c.Network.MaxConnsPerIP,
		"RIVERRAID_MAX_TOTAL_CONNS":      &c.Network.MaxTotalConns,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	floats := map[string]*float64{
		"RIVERRAID_BOAT_CHANCE":       &c.Spawn.BoatChance,
		"RIVERRAID_JET_CHANCE":        &c.Spawn.JetChance,
		"RIVERRAID_HELICOPTER_CHANCE": &c.Spawn.HelicopterChance,
		"RIVERRAID_FUEL_CHANCE":       &c.Spawn.FuelChance,
		"RIVERRAID_COMMAND_RATE":      &c.Commands.RatePerSecond,
	}
	for key, dst := range floats {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = f
	}

	seconds := map[string]*Seconds{
		"RIVERRAID_BOAT_COOLDOWN":       &c.Spawn.BoatCooldown,
		"RIVERRAID_JET_COOLDOWN":        &c.Spawn.JetCooldown,
		"RIVERRAID_HELICOPTER_COOLDOWN": &c.Spawn.HelicopterCooldown,
		"RIVERRAID_FUEL_COOLDOWN":       &c.Spawn.FuelCooldown,
		"RIVERRAID_SPAWNER_INTERVAL":    &c.Loops.Spawner,
		"RIVERRAID_BOAT_INTERVAL":       &c.Loops.Boat,
		"RIVERRAID_JET_INTERVAL":        &c.Loops.Jet,
		"RIVERRAID_HELICOPTER_INTERVAL": &c.Loops.Helicopter,
		"RIVERRAID_MISSILE_INTERVAL":    &c.Loops.Missile,
		"RIVERRAID_FUEL_INTERVAL":       &c.Loops.Fuel,
		"RIVERRAID_COLLISION_INTERVAL":  &c.Loops.Collision,
		"RIVERRAID_STATE_INTERVAL":      &c.Loops.State,
		"RIVERRAID_BROADCAST_INTERVAL":  &c.Loops.Broadcast,
		"RIVERRAID_HEALTH_INTERVAL":     &c.Supervisor.HealthCheckInterval,
		"RIVERRAID_SHUTDOWN_TIMEOUT":    &c.Supervisor.ShutdownTimeout,
	}
	for key, dst := range seconds {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = Seconds(f)
	}

	strs := map[string]*string{
		"RIVERRAID_HTTP_ADDR":     &c.Network.HTTPAddr,
		"RIVERRAID_SSH_ADDR":      &c.Network.SSHAddr,
		"RIVERRAID_SSH_HOST_KEY":  &c.Network.SSHHostKeyPath,
		"RIVERRAID_PASSWORD_HASH": &c.Network.PasswordHash,
		"RIVERRAID_AUTH_SECRET":   &c.Network.AuthSecret,
		"RIVERRAID_PUBLIC_URL":    &c.Network.PublicURL,
		"RIVERRAID_DB_PATH":       &c.Storage.DatabasePath,
		"RIVERRAID_LOG_LEVEL":     &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("RIVERRAID_SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("RIVERRAID_SEED: %w", err)
		}
		c.Seed = n
	}
	return nil
}

// maxEntityExtent is the widest entity footprint in board cells (a boat).
const maxEntityExtent = 3

// Validate rejects configurations the engine cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.BoardWidth <= 0 || c.BoardHeight <= 0 {
		errs = append(errs, fmt.Errorf("board must be positive, got %dx%d", c.BoardWidth, c.BoardHeight))
	}
	if c.GridSize <= 0 {
		errs = append(errs, fmt.Errorf("gridSize must be positive, got %d", c.GridSize))
	} else if c.BoardWidth/c.GridSize < maxEntityExtent || c.BoardHeight/c.GridSize < maxEntityExtent {
		errs = append(errs, fmt.Errorf("gridSize %d makes cells narrower than %d board cells", c.GridSize, maxEntityExtent))
	}

	chances := map[string]float64{
		"boatChance":       c.Spawn.BoatChance,
		"jetChance":        c.Spawn.JetChance,
		"helicopterChance": c.Spawn.HelicopterChance,
		"fuelChance":       c.Spawn.FuelChance,
	}
	for name, p := range chances {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Errorf("%s must be in [0,1], got %v", name, p))
		}
	}

	cooldowns := map[string]Seconds{
		"boatCooldown":       c.Spawn.BoatCooldown,
		"jetCooldown":        c.Spawn.JetCooldown,
		"helicopterCooldown": c.Spawn.HelicopterCooldown,
		"fuelCooldown":       c.Spawn.FuelCooldown,
	}
	for name, s := range cooldowns {
		if s < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", name, s))
		}
	}

	intervals := map[string]Seconds{
		"spawner":    c.Loops.Spawner,
		"boat":       c.Loops.Boat,
		"jet":        c.Loops.Jet,
		"helicopter": c.Loops.Helicopter,
		"missile":    c.Loops.Missile,
		"fuel":       c.Loops.Fuel,
		"collision":  c.Loops.Collision,
		"state":      c.Loops.State,
		"broadcast":  c.Loops.Broadcast,
	}
	for name, s := range intervals {
		if s <= 0 {
			errs = append(errs, fmt.Errorf("loop interval %s must be positive, got %v", name, s))
		}
	}

	if c.Limits.MaxEnemies < 0 || c.Limits.MaxMissiles < 0 || c.Limits.MaxFuelDepots < 0 || c.Limits.PoolSize < 0 {
		errs = append(errs, errors.New("entity limits must not be negative"))
	}
	if c.Decay.FuelTicks <= 0 || c.Decay.ScoreTicks <= 0 {
		errs = append(errs, fmt.Errorf("decay ticks must be positive, got fuel=%d score=%d", c.Decay.FuelTicks, c.Decay.ScoreTicks))
	}
	if c.Commands.QueueCapacity <= 0 {
		errs = append(errs, fmt.Errorf("queueCapacity must be positive, got %d", c.Commands.QueueCapacity))
	}
	if c.Commands.RatePerSecond <= 0 {
		errs = append(errs, fmt.Errorf("ratePerSecond must be positive, got %v", c.Commands.RatePerSecond))
	}
	if c.Supervisor.MaxRestartAttempts < 0 {
		errs = append(errs, fmt.Errorf("maxRestartAttempts must not be negative, got %d", c.Supervisor.MaxRestartAttempts))
	}
	if c.Supervisor.HealthCheckInterval <= 0 || c.Supervisor.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("supervisor intervals must be positive"))
	}
	return errors.Join(errs...)
}

// Board returns the board dimensions as floats
func (c *Config) Board() Board {
	return Board{Width: float64(c.BoardWidth), Height: float64(c.BoardHeight)}
}
