package app

import (
	"fmt"

	"github.com/nhle/po-intake/internal/credential"
	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/theme"
)

// SetRemote overlays patch on the current remote settings, persists them
// right away and applies them to the live client. The endpoint goes to the
// config file and the API key to the keyring.
func (a *App) SetRemote(patch model.RemotePatch) (model.RemoteConfig, error) {
	next := a.Client.Config().Overlay(patch)

	if patch.APIKey != nil {
		var err error
		if next.APIKey == "" {
			err = a.Ring.Delete(credential.KeyAPIKey)
		} else {
			err = a.Ring.Set(credential.KeyAPIKey, next.APIKey)
		}
		if err != nil {
			return a.Client.Config(), err
		}
	}

	a.Config.Remote = next
	if err := a.save(); err != nil {
		return a.Client.Config(), err
	}
	a.Client.SetConfig(next)
	a.Logger.Info("remote settings updated", "endpoint", next.Endpoint, "api_key_set", next.APIKey != "")
	return next, nil
}

// SetSyncEnabled turns delivery on or off and persists the choice.
func (a *App) SetSyncEnabled(on bool) error {
	a.Config.Sync.Enabled = on
	if err := a.save(); err != nil {
		return err
	}
	a.Resilient.SetEnabled(on)
	return nil
}

// SetDarkMode persists the display preference and applies it.
func (a *App) SetDarkMode(on bool) error {
	a.Config.Display.DarkMode = on
	if err := a.save(); err != nil {
		return err
	}
	theme.SetDarkMode(on)
	return nil
}

// VerifyPIN checks the admin PIN.
func (a *App) VerifyPIN(pin string) error {
	return a.Ring.VerifyPIN(pin)
}

// ChangePIN replaces the admin PIN after verifying the current one.
func (a *App) ChangePIN(current, next string) error {
	if err := a.Ring.VerifyPIN(current); err != nil {
		return err
	}
	if err := a.Ring.SetPIN(next); err != nil {
		return err
	}
	a.Logger.Info("admin PIN changed")
	return nil
}

func (a *App) save() error {
	if err := model.SaveConfig(a.ConfigPath, a.Config); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
