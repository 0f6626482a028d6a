package cmds

import (
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/session"
	"github.com/go-go-golems/parley/pkg/steps/ai/chat"
	"github.com/go-go-golems/parley/pkg/steps/ai/openai"
	"github.com/go-go-golems/parley/pkg/steps/ai/settings"
	"github.com/go-go-golems/parley/pkg/tokens"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Runtime is everything a command needs to run turns: the settings, an event router
// whose publisher is registered with the controller, and the controller itself.
type Runtime struct {
	Settings   *settings.StepSettings
	Router     *events.EventRouter
	Controller *session.Controller
}

type RuntimeOption func(*runtimeOptions)

type runtimeOptions struct {
	keyLoader     *APIKeyLoader
	responder     session.Responder
	routerOptions []events.EventRouterOption
	stateObserver func(session.TurnState)
}

// WithAPIKeyLoader overrides the default loader built from viper.
func WithAPIKeyLoader(l *APIKeyLoader) RuntimeOption {
	return func(o *runtimeOptions) {
		o.keyLoader = l
	}
}

// WithResponder skips building a responder from the settings.
func WithResponder(r session.Responder) RuntimeOption {
	return func(o *runtimeOptions) {
		o.responder = r
	}
}

func WithRouterOptions(options ...events.EventRouterOption) RuntimeOption {
	return func(o *runtimeOptions) {
		o.routerOptions = append(o.routerOptions, options...)
	}
}

func WithTurnStateObserver(f func(session.TurnState)) RuntimeOption {
	return func(o *runtimeOptions) {
		o.stateObserver = f
	}
}

// NewRuntime reads its settings from v. With "echo" set, replies are echoed back and
// no API key is needed.
func NewRuntime(v *viper.Viper, options ...RuntimeOption) (*Runtime, error) {
	o := &runtimeOptions{}
	for _, option := range options {
		option(o)
	}

	keyLoader := o.keyLoader
	if keyLoader == nil {
		keyLoader = NewAPIKeyLoader(v)
	}
	if v.GetBool("echo") || o.responder != nil {
		keyLoader = nil
	}

	stepSettings, err := LoadStepSettings(v, keyLoader)
	if err != nil {
		return nil, err
	}

	responder := o.responder
	switch {
	case responder != nil:
	case v.GetBool("echo"):
		log.Debug().Msg("using echo responder")
		responder = chat.NewEchoResponder()
	default:
		responder, err = openai.NewResponder(stepSettings)
		if err != nil {
			return nil, &ConfigurationError{Setting: "openai", Cause: err}
		}
	}

	policy := session.RollbackTurn
	if p := v.GetString("rollback-policy"); p != "" {
		policy, err = session.ParseRollbackPolicy(p)
		if err != nil {
			return nil, &ConfigurationError{Setting: "rollback-policy", Cause: err}
		}
	}

	routerOptions := o.routerOptions
	if v.GetBool("verbose") {
		routerOptions = append([]events.EventRouterOption{events.WithVerbose(true)}, routerOptions...)
	}
	router, err := events.NewEventRouter(routerOptions...)
	if err != nil {
		return nil, err
	}

	pm := events.NewPublisherManager()
	pm.RegisterPublisher(events.ChatTopic, router.Publisher)

	controllerOptions := []session.ControllerOption{
		session.WithCounter(tokens.NewCounter(stepSettings.Chat.Model)),
		session.WithPublisherManager(pm),
		session.WithRollbackPolicy(policy),
	}
	if o.stateObserver != nil {
		controllerOptions = append(controllerOptions, session.WithStateObserver(o.stateObserver))
	}
	controller, err := session.NewController(responder, controllerOptions...)
	if err != nil {
		_ = router.Close()
		return nil, err
	}

	log.Debug().
		Str("model", stepSettings.Chat.Model).
		Str("vision_model", stepSettings.Chat.VisionModel).
		Str("rollback_policy", policy.String()).
		Msg("runtime ready")

	return &Runtime{
		Settings:   stepSettings,
		Router:     router,
		Controller: controller,
	}, nil
}

func (r *Runtime) Close() error {
	return r.Router.Close()
}
