// Package events publishes run lifecycle events to RabbitMQ.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/pedro-r-marques/cirunner/pkg/engine"
)

const defaultExchangeName = "ci-runner.events"

var errNotConnected = errors.New("unable to publish event to RabbitMQ server: not connected")

type rabbitMQBus struct {
	address      string
	exchangeName string
	mutex        sync.Mutex
	sendChannel  *amqp.Channel
}

// NewRabbitMQBus creates a publish-only event bus. The connection is
// maintained by a background loop; events published while disconnected are
// dropped with an error.
func NewRabbitMQBus(address string) engine.EventBus {
	bus := &rabbitMQBus{
		address:      address,
		exchangeName: defaultExchangeName,
	}
	go bus.run()
	return bus
}

func (b *rabbitMQBus) setChannel(ch *amqp.Channel) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.sendChannel = ch
}

func (b *rabbitMQBus) run() {
	for {
		connection, err := amqp.Dial(b.address)
		if err != nil {
			time.Sleep(30 * time.Second)
			continue
		}

		connErrChan := make(chan *amqp.Error)
		connection.NotifyClose(connErrChan)

		sendChannel, err := b.sendChannelCreate(connection)
		if err != nil {
			connection.Close()
			continue
		}

		sendErrChan := make(chan *amqp.Error)
		sendChannel.NotifyClose(sendErrChan)

		b.setChannel(sendChannel)
		isConnected := true

		for isConnected {
			select {
			case qerr := <-sendErrChan:
				log.Printf("amqp send channel error: %v", *qerr)
				sendChannel, err = b.sendChannelCreate(connection)
				if err == nil {
					sendErrChan = make(chan *amqp.Error)
					sendChannel.NotifyClose(sendErrChan)
					b.setChannel(sendChannel)
				} else {
					log.Printf("amqp send channel reconnect: %v", err)
					connection.Close()
					isConnected = false
				}

			case qerr := <-connErrChan:
				log.Printf("amqp connection error: %v", *qerr)
				isConnected = false
			}
		}
		b.setChannel(nil)
	}
}

func (b *rabbitMQBus) sendChannelCreate(connection *amqp.Connection) (*amqp.Channel, error) {
	ch, err := connection.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(
		b.exchangeName,
		"topic",
		false, // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil)
	if err != nil {
		ch.Close()
		return nil, err
	}
	return ch, nil
}

// correlationId identifies the run, job and step an event belongs to.
func correlationId(ev engine.Event) string {
	fields := []string{ev.Run.String()}
	if ev.Job != "" {
		fields = append(fields, ev.Job)
	}
	if ev.Step != "" {
		fields = append(fields, ev.Step)
	}
	return strings.Join(fields, ":")
}

func (b *rabbitMQBus) Publish(ev engine.Event) error {
	b.mutex.Lock()
	sendChannel := b.sendChannel
	b.mutex.Unlock()
	if sendChannel == nil {
		return errNotConnected
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("RabbitMQ publish: %w", err)
	}
	msg := amqp.Publishing{
		CorrelationId: correlationId(ev),
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Body:          body,
	}
	return sendChannel.Publish(
		b.exchangeName,
		ev.Kind, // routing-key
		false,   // mandatory
		false,   // immediate
		msg)
}
