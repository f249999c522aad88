package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqttclient "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/getmockd/contractd/internal/matching"
	"github.com/getmockd/contractd/pkg/cli/internal/output"
	"github.com/getmockd/contractd/pkg/messaging"
	"github.com/getmockd/contractd/pkg/mqtt"
)

var (
	serveHost     string
	servePort     int
	serveTriggers []string

	sendBroker   string
	sendPayload  string
	sendWait     string
	sendTimeout  time.Duration
	sendQoS      int
	sendUsername string
	sendPassword string
)

// SendOutput is the JSON form of mqtt send.
type SendOutput struct {
	Topic   string `json:"topic"`
	Reply   string `json:"reply,omitempty"`
	ReplyOn string `json:"replyOn,omitempty"`
}

var mqttCmd = &cobra.Command{
	Use:   "mqtt",
	Short: "Serve messaging contracts over MQTT",
}

var mqttServeCmd = &cobra.Command{
	Use:   "serve [path]",
	Short: "Run an MQTT broker that answers messages as the contracts describe",
	Long: `Start an embedded MQTT broker. Every message published by a client is matched
against the contracts whose input listens on the topic; the first contract that
matches has its output message published to its sentTo topic.

Message headers travel as MQTT v5 user properties.`,
	Example: `  contractd mqtt serve contracts/ --port 1883
  contractd mqtt serve --trigger order_shipped`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contracts, err := mustLoadContracts(contractsPath(args))
		if err != nil {
			return err
		}

		opts, err := cfg.EngineOptions()
		if err != nil {
			return err
		}
		engine := matching.New(append(opts, matching.WithLogger(componentLogger("matching")))...)
		router := messaging.NewRouter(contracts,
			messaging.WithRouterEngine(engine),
			messaging.WithRouterLogger(componentLogger("router")))

		brokerCfg := cfg.MQTT
		if cmd.Flags().Changed("host") {
			brokerCfg.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			brokerCfg.Port = servePort
		}

		broker, err := mqtt.NewBroker(&brokerCfg, router)
		if err != nil {
			return err
		}
		broker.SetLogger(componentLogger("mqtt"))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := broker.Start(ctx); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "MQTT broker listening on %s\n", broker.Address())
		fmt.Fprintf(cmd.OutOrStdout(), "  listening on: %s\n", strings.Join(router.Destinations(), ", "))
		if labels := router.Labels(); len(labels) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  triggers:     %s\n", strings.Join(labels, ", "))
		}

		for _, label := range serveTriggers {
			msg, err := broker.Trigger(ctx, label)
			if err != nil {
				_ = broker.Stop(context.Background(), 5*time.Second)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "triggered %s, published to %s\n", label, msg.Destination)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")
		<-ctx.Done()

		stats := broker.Stats()
		logger.Info("shutting down",
			"received", stats.Received,
			"routed", stats.Routed,
			"unmatched", stats.Unmatched,
			"published", stats.Published)
		return broker.Stop(context.Background(), 5*time.Second)
	},
}

var mqttSendCmd = &cobra.Command{
	Use:   "send <topic>",
	Short: "Publish a message to an MQTT broker",
	Long: `Publish a message and optionally wait for the reply on another topic.
Useful to exercise a running "contractd mqtt serve".

The client speaks MQTT 3.1.1, so no headers are sent.`,
	Example: `  contractd mqtt send orders --payload '{"id":1,"status":"NEW"}' --wait orders/accepted`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := args[0]
		if sendQoS < 0 || sendQoS > 2 {
			return fmt.Errorf("invalid QoS %d, must be 0, 1 or 2", sendQoS)
		}

		opts := mqttclient.NewClientOptions().
			AddBroker(brokerURL(sendBroker)).
			SetClientID("contractd-send-" + uuid.NewString()[:8]).
			SetConnectTimeout(sendTimeout)
		if sendUsername != "" {
			opts.SetUsername(sendUsername)
			opts.SetPassword(sendPassword)
		}

		client := mqttclient.NewClient(opts)
		if err := wait(client.Connect(), sendTimeout); err != nil {
			return fmt.Errorf("failed to connect to %s: %w", sendBroker, err)
		}
		defer client.Disconnect(250)

		replies := make(chan mqttclient.Message, 1)
		if sendWait != "" {
			token := client.Subscribe(sendWait, byte(sendQoS), func(_ mqttclient.Client, m mqttclient.Message) {
				select {
				case replies <- m:
				default:
				}
			})
			if err := wait(token, sendTimeout); err != nil {
				return fmt.Errorf("failed to subscribe to %s: %w", sendWait, err)
			}
		}

		if err := wait(client.Publish(topic, byte(sendQoS), false, sendPayload), sendTimeout); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", topic, err)
		}

		out := SendOutput{Topic: topic}
		if sendWait != "" {
			select {
			case m := <-replies:
				out.Reply = string(m.Payload())
				out.ReplyOn = m.Topic()
			case <-time.After(sendTimeout):
				return fmt.Errorf("no reply on %s within %s", sendWait, sendTimeout)
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}
		}

		if jsonOutput {
			return output.JSON(cmd.OutOrStdout(), out)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ published to %s\n", topic)
		if out.ReplyOn != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "reply on %s: %s\n", out.ReplyOn, out.Reply)
		}
		return nil
	},
}

// brokerURL accepts host:port and adds the tcp scheme.
func brokerURL(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	return "tcp://" + addr
}

func wait(token mqttclient.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return errors.New("timed out")
	}
	return token.Error()
}

func init() {
	rootCmd.AddCommand(mqttCmd)
	mqttCmd.AddCommand(mqttServeCmd)
	mqttCmd.AddCommand(mqttSendCmd)

	mqttServeCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (default: mqtt.host)")
	mqttServeCmd.Flags().IntVarP(&servePort, "port", "p", mqtt.DefaultPort, "Listen port (default: mqtt.port)")
	mqttServeCmd.Flags().StringArrayVar(&serveTriggers, "trigger", nil, "Publish the output of the contract with this label once started (repeatable)")

	mqttSendCmd.Flags().StringVarP(&sendBroker, "broker", "b", "localhost:1883", "Broker address")
	mqttSendCmd.Flags().StringVarP(&sendPayload, "payload", "m", "", "Message payload")
	mqttSendCmd.Flags().StringVarP(&sendWait, "wait", "w", "", "Wait for one reply on this topic")
	mqttSendCmd.Flags().DurationVarP(&sendTimeout, "timeout", "t", 5*time.Second, "Connect, publish and reply timeout")
	mqttSendCmd.Flags().IntVar(&sendQoS, "qos", 0, "QoS level 0, 1 or 2")
	mqttSendCmd.Flags().StringVarP(&sendUsername, "username", "u", "", "MQTT username")
	mqttSendCmd.Flags().StringVarP(&sendPassword, "password", "P", "", "MQTT password")
}
