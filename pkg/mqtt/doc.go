// Package mqtt serves messaging contracts over MQTT.
//
// The Broker embeds an MQTT server. Every message a client publishes is
// routed through a messaging.Router: the topic is the destination, MQTT v5
// user properties become headers, and the output message of the selected
// contract is published to its sentTo topic.
//
// # Basic Usage
//
//	router := messaging.NewRouter(contracts)
//	broker, err := mqtt.NewBroker(&mqtt.Config{Port: 1883}, router)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := broker.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer broker.Stop(context.Background(), 5*time.Second)
//
// # Authentication
//
// Enable authentication with username/password and ACL rules:
//
//	config := &mqtt.Config{
//	    Port: 1883,
//	    Auth: &mqtt.AuthConfig{
//	        Enabled: true,
//	        Users: []mqtt.User{
//	            {
//	                Username: "producer",
//	                Password: "secret",
//	                ACL: []mqtt.ACLRule{
//	                    {Topic: "orders/#", Access: "readwrite"},
//	                },
//	            },
//	        },
//	    },
//	}
//
// ACL access levels are "read" (subscribe), "write" (publish) and
// "readwrite".
//
// # Triggered contracts
//
// Contracts without an inbound message are published on demand:
//
//	broker.Trigger(ctx, "order_shipped")
package mqtt
