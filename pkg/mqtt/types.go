package mqtt

// Config configures the MQTT broker
type Config struct {
	Host string      `json:"host,omitempty" yaml:"host,omitempty"`
	Port int         `json:"port" yaml:"port"`
	TLS  *TLSConfig  `json:"tls,omitempty" yaml:"tls,omitempty"`
	Auth *AuthConfig `json:"auth,omitempty" yaml:"auth,omitempty"`
	// QoS is used when publishing output messages.
	QoS byte `json:"qos,omitempty" yaml:"qos,omitempty"`
}

// TLSConfig configures TLS for the MQTT broker
type TLSConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	CertFile string `json:"certFile" yaml:"certFile"`
	KeyFile  string `json:"keyFile" yaml:"keyFile"`
}

// AuthConfig configures authentication for the MQTT broker
type AuthConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Users   []User `json:"users,omitempty" yaml:"users,omitempty"`
}

// User represents an authenticated MQTT user
type User struct {
	Username string    `json:"username" yaml:"username"`
	Password string    `json:"password" yaml:"password"`
	ACL      []ACLRule `json:"acl,omitempty" yaml:"acl,omitempty"`
}

// ACLRule defines access control for topics
type ACLRule struct {
	Topic  string `json:"topic" yaml:"topic"`   // e.g., "orders/#"
	Access string `json:"access" yaml:"access"` // "read", "write", "readwrite"
}

// Stats contains broker counters.
type Stats struct {
	Running   bool  `json:"running"`
	Clients   int   `json:"clients"`
	Received  int64 `json:"received"`
	Routed    int64 `json:"routed"`
	Unmatched int64 `json:"unmatched"`
	Published int64 `json:"published"`
}
