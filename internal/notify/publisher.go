package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/faxioman/sofa/internal/revision"
)

// NatsPublisher implements Publisher using NATS JetStream.
type NatsPublisher struct {
	js jetstream.JetStream
}

func NewNatsPublisher(nc *nats.Conn) (*NatsPublisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, err
	}
	return &NatsPublisher{js: js}, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, ev Event) error {
	// Subject format: sofa.changes.<prefix>.<key>
	// Note: entity keys might contain dots; consumers routing on wildcards
	// should subscribe to sofa.changes.<prefix>.> rather than single tokens.
	prefix, key := revision.SplitID(ev.DocumentID)
	subject := fmt.Sprintf("sofa.changes.%s.%s", prefix, key)
	if key == "" {
		subject = fmt.Sprintf("sofa.changes.%s", prefix)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(ctx, subject, data)
	return err
}
