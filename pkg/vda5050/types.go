package vda5050

import "encoding/json"

// Header carries the fields common to every VDA5050 message.
type Header struct {
	HeaderId     uint32 `json:"headerId"`
	Timestamp    string `json:"timestamp"`
	Version      string `json:"version"`
	Manufacturer string `json:"manufacturer"`
	SerialNumber string `json:"serialNumber"`
}

// Message is the tagged union over the five payload types plus Unparsed.
type Message interface {
	Category() Category
}

// ConnectionState is the announced broker connectivity of a vehicle.
type ConnectionState string

// Connection states as defined by the protocol.
const (
	ConnectionOnline  ConnectionState = "ONLINE"
	ConnectionOffline ConnectionState = "OFFLINE"
	ConnectionBroken  ConnectionState = "CONNECTIONBROKEN"
)

// Connection reports a vehicle's broker connection state. The OFFLINE variant
// is typically published through the broker's last-will mechanism.
type Connection struct {
	Header
	ConnectionState ConnectionState `json:"connectionState"`
}

func (*Connection) Category() Category { return CategoryConnection }

// AgvPosition is the vehicle pose reported in state and visualization
// messages. X and Y are pointers because upstream publishers are allowed to
// send explicit nulls; consumers must treat those as "no position".
type AgvPosition struct {
	X                   *float64 `json:"x"`
	Y                   *float64 `json:"y"`
	Theta               float64  `json:"theta"`
	MapId               string   `json:"mapId"`
	PositionInitialized bool     `json:"positionInitialized"`
}

// Velocity in vehicle coordinates.
type Velocity struct {
	Vx    float64 `json:"vx,omitempty"`
	Vy    float64 `json:"vy,omitempty"`
	Omega float64 `json:"omega,omitempty"`
}

// BatteryState is the battery section of a state message.
type BatteryState struct {
	BatteryCharge  float64  `json:"batteryCharge"`
	BatteryVoltage *float64 `json:"batteryVoltage,omitempty"`
	Charging       bool     `json:"charging"`
}

// Error is one protocol-level error entry of a state message.
type Error struct {
	ErrorType        string `json:"errorType"`
	ErrorDescription string `json:"errorDescription,omitempty"`
	ErrorLevel       string `json:"errorLevel"`
	ErrorReference   string `json:"errorReference,omitempty"`
}

// NodeState mirrors one not-yet-traversed node of the active order.
type NodeState struct {
	NodeId       string        `json:"nodeId"`
	SequenceId   uint32        `json:"sequenceId"`
	Released     bool          `json:"released"`
	NodePosition *NodePosition `json:"nodePosition,omitempty"`
}

// EdgeState mirrors one not-yet-traversed edge of the active order.
type EdgeState struct {
	EdgeId     string `json:"edgeId"`
	SequenceId uint32 `json:"sequenceId"`
	Released   bool   `json:"released"`
}

// State is the periodic full status report of a vehicle.
type State struct {
	Header
	OrderId            string        `json:"orderId"`
	OrderUpdateId      uint32        `json:"orderUpdateId"`
	LastNodeId         string        `json:"lastNodeId"`
	LastNodeSequenceId uint32        `json:"lastNodeSequenceId"`
	Driving            bool          `json:"driving"`
	Paused             bool          `json:"paused,omitempty"`
	OperatingMode      string        `json:"operatingMode"`
	NodeStates         []NodeState   `json:"nodeStates"`
	EdgeStates         []EdgeState   `json:"edgeStates"`
	AgvPosition        *AgvPosition  `json:"agvPosition,omitempty"`
	Velocity           *Velocity     `json:"velocity,omitempty"`
	BatteryState       *BatteryState `json:"batteryState,omitempty"`
	Errors             []Error       `json:"errors"`
}

func (*State) Category() Category { return CategoryState }

// Visualization is the high-frequency pose broadcast. It shares the position
// semantics of State but never replaces it.
type Visualization struct {
	Header
	AgvPosition *AgvPosition `json:"agvPosition,omitempty"`
	Velocity    *Velocity    `json:"velocity,omitempty"`
}

func (*Visualization) Category() Category { return CategoryVisualization }

// ActionParameter is one key/value parameter of an action.
type ActionParameter struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Action is a task attached to a node, an edge, or an instantActions message.
type Action struct {
	ActionType        string            `json:"actionType"`
	ActionId          string            `json:"actionId"`
	ActionDescription string            `json:"actionDescription,omitempty"`
	BlockingType      string            `json:"blockingType"`
	ActionParameters  []ActionParameter `json:"actionParameters,omitempty"`
}

// NodePosition is the map position of an order node.
type NodePosition struct {
	X                     float64  `json:"x"`
	Y                     float64  `json:"y"`
	Theta                 *float64 `json:"theta,omitempty"`
	MapId                 string   `json:"mapId"`
	AllowedDeviationXY    *float64 `json:"allowedDeviationXY,omitempty"`
	AllowedDeviationTheta *float64 `json:"allowedDeviationTheta,omitempty"`
}

// Node is one stop point of an order.
type Node struct {
	NodeId          string        `json:"nodeId"`
	SequenceId      uint32        `json:"sequenceId"`
	Released        bool          `json:"released"`
	NodeDescription string        `json:"nodeDescription,omitempty"`
	NodePosition    *NodePosition `json:"nodePosition,omitempty"`
	Actions         []Action      `json:"actions"`
}

// Edge is one connection between two order nodes. StartNodeId and EndNodeId
// describe the driving direction.
type Edge struct {
	EdgeId          string   `json:"edgeId"`
	SequenceId      uint32   `json:"sequenceId"`
	Released        bool     `json:"released"`
	EdgeDescription string   `json:"edgeDescription,omitempty"`
	StartNodeId     string   `json:"startNodeId"`
	EndNodeId       string   `json:"endNodeId"`
	MaxSpeed        *float64 `json:"maxSpeed,omitempty"`
	Actions         []Action `json:"actions"`
}

// Order is a master-to-vehicle route description. Missing nodes or edges
// arrays decode as nil and are treated as empty everywhere.
type Order struct {
	Header
	OrderId       string `json:"orderId"`
	OrderUpdateId uint32 `json:"orderUpdateId"`
	ZoneSetId     string `json:"zoneSetId,omitempty"`
	Nodes         []Node `json:"nodes"`
	Edges         []Edge `json:"edges"`
}

func (*Order) Category() Category { return CategoryOrder }

// InstantActions requests immediate actions outside the current order.
// VDA5050 2.x names the array "actions"; 1.x used "instantActions". Both are
// accepted, preferring the modern name.
type InstantActions struct {
	Header
	Actions []Action `json:"actions"`
}

func (*InstantActions) Category() Category { return CategoryInstantActions }

func (ia *InstantActions) UnmarshalJSON(data []byte) error {
	type plain InstantActions
	aux := struct {
		*plain
		Legacy []Action `json:"instantActions"`
	}{plain: (*plain)(ia)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(ia.Actions) == 0 && len(aux.Legacy) > 0 {
		ia.Actions = aux.Legacy
	}
	return nil
}

// Unparsed wraps a payload that could not be decoded as its category's typed
// message. The raw UTF-8 text is preserved so observers still see it.
type Unparsed struct {
	Cat Category
	Raw string
}

func (u *Unparsed) Category() Category { return u.Cat }
