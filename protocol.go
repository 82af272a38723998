package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Action names a player command
type Action string

const (
	ActionMove          Action = "move"
	ActionShoot         Action = "shoot"
	ActionReset         Action = "reset_game"
	ActionQuit          Action = "quit_game"
	ActionSwitchMissile Action = "switch_missile"
	ActionAccelerate    Action = "accelerate"
	ActionDecelerate    Action = "decelerate"
)

// Server -> client envelope types
const (
	MsgState   = "state"
	MsgResult  = "result"
	MsgWelcome = "welcome"
	MsgError   = "error"
	MsgBye     = "bye" // session ended by quit_game
)

// Result statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrBadDirection  = errors.New("move needs direction left or right")
)

// Command is a player request, one JSON object per message
type Command struct {
	Action    Action    `json:"action" msgpack:"action" jsonschema:"enum=move,enum=shoot,enum=reset_game,enum=quit_game,enum=switch_missile,enum=accelerate,enum=decelerate"`
	Direction Direction `json:"direction,omitempty" msgpack:"direction,omitempty" jsonschema:"enum=left,enum=right"`
}

// Validate checks the action and, for moves, the direction
func (c Command) Validate() error {
	switch c.Action {
	case ActionMove:
		if !c.Direction.Valid() {
			return fmt.Errorf("%w: got %q", ErrBadDirection, c.Direction)
		}
	case ActionShoot, ActionReset, ActionQuit, ActionSwitchMissile, ActionAccelerate, ActionDecelerate:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, c.Action)
	}
	return nil
}

// Result answers every command with the state at submission time
type Result struct {
	Status string   `json:"status" msgpack:"status" jsonschema:"enum=ok,enum=error"`
	State  Snapshot `json:"state" msgpack:"state"`
	Error  string   `json:"error,omitempty" msgpack:"error,omitempty"`
}

// PositionState is an (x, y) pair on the wire
type PositionState struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// EnemyState is an enemy on the wire; Type is B, J or H
type EnemyState struct {
	X    float64 `json:"x" msgpack:"x"`
	Y    float64 `json:"y" msgpack:"y"`
	Type string  `json:"type" msgpack:"type" jsonschema:"enum=B,enum=J,enum=H"`
}

// MissileState is a missile on the wire
type MissileState struct {
	X    float64     `json:"x" msgpack:"x"`
	Y    float64     `json:"y" msgpack:"y"`
	Type MissileType `json:"type" msgpack:"type" jsonschema:"enum=straight,enum=guided"`
}

// Snapshot is a detached copy of the game state
type Snapshot struct {
	GameID      string          `json:"game_id" msgpack:"game_id"`
	Player      PositionState   `json:"player" msgpack:"player"`
	Enemies     []EnemyState    `json:"enemies" msgpack:"enemies"`
	FuelDepots  []PositionState `json:"fuel_depots" msgpack:"fuel_depots"`
	Missiles    []MissileState  `json:"missiles" msgpack:"missiles"`
	Score       int             `json:"score" msgpack:"score"`
	Lives       int             `json:"lives" msgpack:"lives"`
	Fuel        int             `json:"fuel" msgpack:"fuel"`
	Phase       Phase           `json:"phase" msgpack:"phase" jsonschema:"enum=running,enum=game_over"`
	Speed       int             `json:"speed" msgpack:"speed"`
	MissileType MissileType     `json:"missile_type" msgpack:"missile_type"`
	Tick        uint64          `json:"tick" msgpack:"tick"`
}

// Envelope wraps all outgoing websocket messages with a type field
type Envelope struct {
	T    string      `json:"t" msgpack:"t"`
	Data interface{} `json:"d,omitempty" msgpack:"d,omitempty"`
}

// WelcomeMsg is sent when a client connects
type WelcomeMsg struct {
	SessionID string `json:"sid"`
	Player    string `json:"player,omitempty"`
	Encoding  string `json:"enc"`
}

// ErrorMsg is sent on malformed input
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// ProtocolSchema returns the JSON Schema of the command and result messages
func ProtocolSchema() ([]byte, error) {
	r := &jsonschema.Reflector{}
	doc := map[string]interface{}{
		"command": r.Reflect(&Command{}),
		"result":  r.Reflect(&Result{}),
	}
	return json.MarshalIndent(doc, "", "  ")
}
