package models

// Client intent names. They are part of the wire contract.
const (
	IntentJoinGame            = "join-game"
	IntentReconnectPlayer     = "reconnect-player"
	IntentStartGame           = "start-game"
	IntentStartNextRound      = "start-next-round"
	IntentPlayerAction        = "player-action"
	IntentFreezeTarget        = "freeze-target-selected"
	IntentFlipThreeAssignment = "flip-3-assignment"
	IntentGiveSecondChance    = "give-second-chance"
	IntentSecondChanceDone    = "second-chance-complete"
	IntentAdminRestart        = "admin-restart"
	IntentAdminDropPlayer     = "admin-drop-player"
	IntentAdminKickAllRestart = "admin-kick-all-restart"
	IntentAdminUpdateRules    = "admin-update-rules"
)

// Player-action verbs.
const (
	ActionDraw  = "draw"
	ActionStick = "stick"
)

// GameAction is the decoded payload of any client intent. Only the fields relevant to
// the intent's Type are populated.
type GameAction struct {
	Type string `json:"type"`

	PlayerName         string                 `json:"playerName,omitempty"`
	PlayerNumber       int                    `json:"playerNumber,omitempty"`
	TargetPlayerNumber int                    `json:"targetPlayerNumber,omitempty"`
	Action             string                 `json:"action,omitempty"`
	Password           string                 `json:"password,omitempty"`
	Token              string                 `json:"token,omitempty"`
	Rules              map[string]interface{} `json:"rules,omitempty"`
}
