// Package pubsub opens the Pub/Sub v2 client for the outbox publisher and
// the analytics consumer and checks that the resources each side needs exist.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gpubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/gcp"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

// Mode picks what Ping verifies.
type Mode int

const (
	// ModePublisher checks the sales and inventory topics.
	ModePublisher Mode = iota
	// ModeSubscriber checks the analytics subscription.
	ModeSubscriber
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

var errNotInitialized = errors.New("pubsub client not initialized")

type Client struct {
	client  *gpubsub.Client
	project string
	cfg     config.PubSubConfig
	mode    Mode
	// lookup fetches the named resource; tests replace it.
	lookup func(ctx context.Context, kind, name string) error
}

func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, mode Mode, logg *logger.Logger) (*Client, error) {
	project, err := gcp.ProjectID(gcpCfg)
	if err != nil {
		return nil, err
	}
	raw, err := gpubsub.NewClient(ctx, project, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: raw, project: project, cfg: cfg, mode: mode}
	c.lookup = c.adminLookup
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "gcp_project", project), "pubsub client initialized")
	}
	return c, nil
}

// required lists the resources the client's mode depends on.
func (c *Client) required() (kind string, names []string) {
	switch c.mode {
	case ModeSubscriber:
		kind, names = kindSubscription, []string{c.cfg.AnalyticsSubscription}
	default:
		kind, names = kindTopic, []string{c.cfg.SalesTopic, c.cfg.InventoryTopic}
	}
	out := names[:0]
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return kind, out
}

// Ping confirms that every resource required by the mode exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.lookup == nil {
		return errNotInitialized
	}
	kind, names := c.required()
	if len(names) == 0 {
		return fmt.Errorf("no pubsub %s configured", kind)
	}
	for _, name := range names {
		if err := c.lookup(ctx, kind, resourceName(c.project, kind, name)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) adminLookup(ctx context.Context, kind, name string) error {
	var err error
	if kind == kindSubscription {
		_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
	} else {
		_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
	}
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s does not exist", name)
	default:
		return fmt.Errorf("checking %s: %w", name, err)
	}
}

// AnalyticsSubscription returns the subscriber the analytics worker reads.
func (c *Client) AnalyticsSubscription() *gpubsub.Subscriber {
	if c == nil || c.client == nil || strings.TrimSpace(c.cfg.AnalyticsSubscription) == "" {
		return nil
	}
	return c.client.Subscriber(resourceName(c.project, kindSubscription, c.cfg.AnalyticsSubscription))
}

// Publisher returns a handle for topic, given as an id or a full resource
// name.
func (c *Client) Publisher(topic string) *gpubsub.Publisher {
	if c == nil || c.client == nil || strings.TrimSpace(topic) == "" {
		return nil
	}
	return c.client.Publisher(resourceName(c.project, kindTopic, topic))
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands an id to projects/<project>/<kind>/<id>. Full names
// pass through untouched.
func resourceName(project, kind, name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	return "projects/" + project + "/" + kind + "/" + name
}
