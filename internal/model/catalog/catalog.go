// Package catalog registers the built-in architectures with their typed
// hyperparameters.
package catalog

import (
	"authorship/internal/config"
	"authorship/internal/model"
	"authorship/internal/model/linear"
	"authorship/internal/model/sequence"
)

// Registry returns a registry holding every built-in architecture configured
// from cfg. Selection flags are not consulted here.
func Registry(cfg config.Models) *model.Registry {
	r := model.NewRegistry()
	r.Register(model.Spec{
		Architecture: model.Baseline,
		Params:       cfg.Baseline,
		New: func(env model.Env) (model.Estimator, error) {
			est, err := linear.New(cfg.Baseline, env)
			if err != nil {
				return nil, err
			}
			return est, nil
		},
	})
	r.Register(model.Spec{
		Architecture: model.Bag,
		Params:       cfg.Bag,
		New: func(env model.Env) (model.Estimator, error) {
			est, err := sequence.NewBag(cfg.Bag, env)
			if err != nil {
				return nil, err
			}
			return est, nil
		},
	})
	r.Register(model.Spec{
		Architecture: model.CNN,
		Params:       cfg.CNN,
		New: func(env model.Env) (model.Estimator, error) {
			est, err := sequence.NewCNN(cfg.CNN, env)
			if err != nil {
				return nil, err
			}
			return est, nil
		},
	})
	r.Register(model.Spec{
		Architecture: model.RNN,
		Params:       cfg.RNN,
		New: func(env model.Env) (model.Estimator, error) {
			est, err := sequence.NewRNN(cfg.RNN, env)
			if err != nil {
				return nil, err
			}
			return est, nil
		},
	})
	return r
}

// Selected returns the architectures enabled in cfg, in canonical order.
func Selected(cfg config.Models) []model.Architecture {
	var out []model.Architecture
	if cfg.EnableBaseline {
		out = append(out, model.Baseline)
	}
	if cfg.EnableBag {
		out = append(out, model.Bag)
	}
	if cfg.EnableCNN {
		out = append(out, model.CNN)
	}
	if cfg.EnableRNN {
		out = append(out, model.RNN)
	}
	return out
}
