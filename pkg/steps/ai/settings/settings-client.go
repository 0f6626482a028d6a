package settings

import (
	"net/http"
	"time"

	"github.com/huandu/go-clone"
	"gopkg.in/yaml.v3"
)

type ClientSettings struct {
	Timeout        *time.Duration `yaml:"timeout,omitempty"`
	TimeoutSeconds *int           `yaml:"timeout_second,omitempty"`
	Organization   *string        `yaml:"organization,omitempty"`
	UserAgent      *string        `yaml:"user_agent,omitempty"`
	HTTPClient     *http.Client   `yaml:"-" json:"-"`
}

// UnmarshalYAML overrides YAML parsing to convert time.duration from int
func (cs *ClientSettings) UnmarshalYAML(value *yaml.Node) error {
	aux := &struct {
		Timeout      *int    `yaml:"timeout,omitempty"`
		Organization *string `yaml:"organization,omitempty"`
		UserAgent    *string `yaml:"user_agent,omitempty"`
	}{}
	if err := value.Decode(aux); err != nil {
		return err
	}
	if aux.Timeout != nil {
		cs.SetTimeoutSeconds(*aux.Timeout)
	}
	if aux.Organization != nil {
		cs.Organization = aux.Organization
	}
	if aux.UserAgent != nil {
		cs.UserAgent = aux.UserAgent
	}
	return nil
}

func (cs *ClientSettings) Clone() *ClientSettings {
	// http.Client holds a transport that must be shared, not copied
	httpClient := cs.HTTPClient
	ret := *cs
	ret.HTTPClient = nil
	ret_ := clone.Clone(&ret).(*ClientSettings)
	ret_.HTTPClient = httpClient
	return ret_
}

// SetTimeoutSeconds keeps Timeout and TimeoutSeconds in sync.
func (cs *ClientSettings) SetTimeoutSeconds(seconds int) {
	t := time.Duration(seconds) * time.Second
	cs.Timeout = &t
	cs.TimeoutSeconds = &seconds
}

const AiClientSlug = "ai-client"

func NewClientSettings() *ClientSettings {
	defaultTimeout := 60 * time.Second
	return &ClientSettings{
		Timeout: &defaultTimeout,
		TimeoutSeconds: func() *int {
			i := int(defaultTimeout.Seconds())
			return &i
		}(),
	}
}
