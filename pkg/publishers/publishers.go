package publishers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/overlod-admin/pkg/lod"
)

const (
	// Supported publisher types.
	TypeSQS       = "sqs"
	TypeSNS       = "sns"
	TypeHTTP      = "http"
	TypeGCPPubSub = "gcp_pubsub"
	TypeNATS      = "nats"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
	natsDefaultTimeoutSeconds = 5
)

type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig is one sink declared in the publishers file. Exactly the
// block matching Type is read; the others are ignored.
type PublisherConfig struct {
	ID        string                    `json:"id" yaml:"id"`
	Type      string                    `json:"type" yaml:"type"`
	Enabled   *bool                     `json:"enabled" yaml:"enabled"`
	SQS       *SQSPublisherConfig       `json:"sqs" yaml:"sqs"`
	SNS       *SNSPublisherConfig       `json:"sns" yaml:"sns"`
	HTTP      *HTTPPublisherConfig      `json:"http" yaml:"http"`
	GCPPubSub *GCPPubSubPublisherConfig `json:"gcp_pubsub" yaml:"gcp_pubsub"`
	NATS      *NATSPublisherConfig      `json:"nats" yaml:"nats"`
}

// AWSAccess holds optional static credentials and an endpoint override
// (LocalStack and friends). Empty fields fall back to the default chain.
type AWSAccess struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
}

// SQSPublisherConfig targets a queue. A queue URL ending in ".fifo" switches
// on message grouping per graph.
type SQSPublisherConfig struct {
	QueueURL  string `json:"uri" yaml:"uri"`
	Region    string `json:"region" yaml:"region"`
	AWSAccess `yaml:",inline"`
}

// SNSPublisherConfig targets a topic.
type SNSPublisherConfig struct {
	TopicARN  string `json:"topic_arn" yaml:"topic_arn"`
	Region    string `json:"region" yaml:"region"`
	AWSAccess `yaml:",inline"`
}

// GCPPubSubPublisherConfig holds Google Cloud Pub/Sub settings. Endpoint
// points at an emulator and disables authentication.
type GCPPubSubPublisherConfig struct {
	ProjectID string `json:"project_id" yaml:"project_id"`
	Topic     string `json:"topic" yaml:"topic"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
}

// NATSPublisherConfig holds NATS core publish settings.
type NATSPublisherConfig struct {
	URL            string `json:"url" yaml:"url"`
	Subject        string `json:"subject" yaml:"subject"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// HTTPPublisherConfig describes a webhook.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// ConfigRegistry is the validated content of a publishers file. It is not
// modified after LoadRegistry returns.
type ConfigRegistry struct {
	list []PublisherConfig
}

// LoadRegistry reads a publishers file. Files ending in .json are decoded as
// JSON, anything else as YAML. ${NAME} references are replaced from the
// environment before decoding, so secrets need not live in the file.
// Unknown keys are rejected.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	file, err := decodeConfigFile([]byte(expandEnv(string(raw))), filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	seen := make(map[string]int, len(file.Publishers))
	reg := &ConfigRegistry{list: make([]PublisherConfig, 0, len(file.Publishers))}
	for i, cfg := range file.Publishers {
		cfg.normalize()
		if err := validatePublisherConfig(cfg); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if prev, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("publishers[%d]: id %q already used by publishers[%d]", i, cfg.ID, prev)
		}
		seen[cfg.ID] = i
		reg.list = append(reg.list, cfg)
	}
	return reg, nil
}

func decodeConfigFile(data []byte, ext string) (configFile, error) {
	var file configFile
	if strings.EqualFold(ext, ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return configFile{}, fmt.Errorf("json: %w", err)
		}
		return file, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return configFile{}, fmt.Errorf("yaml: %w", err)
	}
	return file, nil
}

// expandEnv substitutes $NAME and ${NAME} with set environment variables and
// leaves references to unset ones untouched.
func expandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return "${" + name + "}"
	})
}

func (cfg *PublisherConfig) normalize() {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Enabled == nil {
		on := true
		cfg.Enabled = &on
	}
	if cfg.SQS != nil {
		c := *cfg.SQS
		c.normalize()
		cfg.SQS = &c
	}
	if cfg.SNS != nil {
		c := *cfg.SNS
		c.normalize()
		cfg.SNS = &c
	}
	if cfg.GCPPubSub != nil {
		c := *cfg.GCPPubSub
		c.normalize()
		cfg.GCPPubSub = &c
	}
	if cfg.NATS != nil {
		c := *cfg.NATS
		c.normalize()
		cfg.NATS = &c
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.normalize()
		cfg.HTTP = &c
	}
}

func (a *AWSAccess) normalize() {
	a.AccessKeyID = strings.TrimSpace(a.AccessKeyID)
	a.SecretAccessKey = strings.TrimSpace(a.SecretAccessKey)
	a.Endpoint = strings.TrimSpace(a.Endpoint)
}

func (a AWSAccess) check(block string) error {
	if (a.AccessKeyID == "") != (a.SecretAccessKey == "") {
		return fmt.Errorf("%s.access_key_id and %s.secret_access_key must be set together", block, block)
	}
	if a.Endpoint != "" {
		return lod.ValidateURL(block+".endpoint", a.Endpoint)
	}
	return nil
}

func (c *SQSPublisherConfig) normalize() {
	c.QueueURL = strings.TrimSpace(c.QueueURL)
	c.Region = strings.TrimSpace(c.Region)
	c.AWSAccess.normalize()
}

func (c *SQSPublisherConfig) check() error {
	if c.QueueURL == "" {
		return errors.New("sqs.uri is required")
	}
	if c.Region == "" {
		return errors.New("sqs.region is required")
	}
	return c.AWSAccess.check("sqs")
}

func (c *SNSPublisherConfig) normalize() {
	c.TopicARN = strings.TrimSpace(c.TopicARN)
	c.Region = strings.TrimSpace(c.Region)
	c.AWSAccess.normalize()
}

func (c *SNSPublisherConfig) check() error {
	if !strings.HasPrefix(c.TopicARN, "arn:") {
		return errors.New("sns.topic_arn must be a topic ARN")
	}
	if c.Region == "" {
		return errors.New("sns.region is required")
	}
	return c.AWSAccess.check("sns")
}

func (c *GCPPubSubPublisherConfig) normalize() {
	c.ProjectID = strings.TrimSpace(c.ProjectID)
	c.Topic = strings.TrimSpace(c.Topic)
	c.Endpoint = strings.TrimSpace(c.Endpoint)
}

func (c *GCPPubSubPublisherConfig) check() error {
	if c.ProjectID == "" || c.Topic == "" {
		return errors.New("gcp_pubsub.project_id and gcp_pubsub.topic are required")
	}
	return nil
}

func (c *NATSPublisherConfig) normalize() {
	c.URL = strings.TrimSpace(c.URL)
	c.Subject = strings.TrimSpace(c.Subject)
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = natsDefaultTimeoutSeconds
	}
}

func (c *NATSPublisherConfig) check() error {
	if c.URL == "" || c.Subject == "" {
		return errors.New("nats.url and nats.subject are required")
	}
	if strings.ContainsAny(c.Subject, " \t*>") {
		return fmt.Errorf("nats.subject %q must be a literal subject", c.Subject)
	}
	return nil
}

func (c *HTTPPublisherConfig) normalize() {
	c.URL = strings.TrimSpace(c.URL)
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if c.Method == "" {
		c.Method = httpDefaultMethod
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = httpDefaultTimeoutSeconds
	}
	var headers map[string]string
	for k, v := range c.Headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		if headers == nil {
			headers = make(map[string]string, len(c.Headers))
		}
		headers[k] = v
	}
	c.Headers = headers
}

func (c *HTTPPublisherConfig) check() error {
	switch c.Method {
	case "POST", "PUT":
	default:
		return fmt.Errorf("http.method %q is not supported (use POST or PUT)", c.Method)
	}
	return lod.ValidateURL("http.url", c.URL)
}

// validatePublisherConfig checks the block selected by cfg.Type.
func validatePublisherConfig(cfg PublisherConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	var err error
	switch cfg.Type {
	case "":
		err = errors.New("type is required")
	case TypeSQS:
		if cfg.SQS == nil {
			return fmt.Errorf("publisher %q: sqs block is required", cfg.ID)
		}
		err = cfg.SQS.check()
	case TypeSNS:
		if cfg.SNS == nil {
			return fmt.Errorf("publisher %q: sns block is required", cfg.ID)
		}
		err = cfg.SNS.check()
	case TypeGCPPubSub:
		if cfg.GCPPubSub == nil {
			return fmt.Errorf("publisher %q: gcp_pubsub block is required", cfg.ID)
		}
		err = cfg.GCPPubSub.check()
	case TypeNATS:
		if cfg.NATS == nil {
			return fmt.Errorf("publisher %q: nats block is required", cfg.ID)
		}
		err = cfg.NATS.check()
	case TypeHTTP:
		if cfg.HTTP == nil {
			return fmt.Errorf("publisher %q: http block is required", cfg.ID)
		}
		err = cfg.HTTP.check()
	default:
		err = fmt.Errorf("unknown type %q", cfg.Type)
	}
	if err != nil {
		return fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	return nil
}

// ByID returns the publisher declared under id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	id = strings.TrimSpace(id)
	for _, cfg := range r.list {
		if cfg.ID == id {
			return cfg, true
		}
	}
	return PublisherConfig{}, false
}

// All returns every declared publisher in file order.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	return append([]PublisherConfig(nil), r.list...)
}

// Enabled returns the publishers not switched off, in file order.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	if r == nil {
		return nil
	}
	var out []PublisherConfig
	for _, cfg := range r.list {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue reports whether the publisher is on; unset means on.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}
