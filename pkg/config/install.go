package config

// InstallConfig groups the installation engine settings.
type InstallConfig struct {
	// Target is the mount point of the installation target.
	// Default: "/mnt/archinstall"
	Target string `json:"target,omitempty" koanf:"target" toml:"target,omitempty"`

	// Profile is the name of the profile whose package set is installed.
	Profile string `json:"profile,omitempty" koanf:"profile" toml:"profile,omitempty"`

	// Packages are additional packages installed on top of the profile.
	Packages []string `json:"packages,omitempty" koanf:"packages" toml:"packages,omitempty"`

	// Region selects the mirror region.
	Region string `json:"region,omitempty" koanf:"region" toml:"region,omitempty"`

	// Mirrors is the mirror URL list written before pacstrap.
	Mirrors []string `json:"mirrors,omitempty" koanf:"mirrors" toml:"mirrors,omitempty"`

	// Services are systemd units enabled in the target.
	Services []string `json:"services,omitempty" koanf:"services" toml:"services,omitempty"`

	// Users are accounts created in the target.
	Users []UserConfig `json:"users,omitempty" koanf:"users" toml:"users,omitempty"`

	// CustomCommands are shell commands run in the target after the base
	// steps. Each command is syntax-checked before anything executes.
	CustomCommands []string `json:"custom_commands,omitempty" koanf:"custom_commands" toml:"custom_commands,omitempty"`

	// DryRun logs the commands the engine would run instead of running them.
	DryRun *bool `json:"dry_run,omitempty" koanf:"dry_run" toml:"dry_run"`
}

// UserConfig describes an account created in the target system.
type UserConfig struct {
	// Username is the account name.
	Username string `json:"username" koanf:"username" toml:"username"`

	// Groups are supplementary groups.
	Groups []string `json:"groups,omitempty" koanf:"groups" toml:"groups,omitempty"`

	// Shell is the login shell. Default: "/bin/bash"
	Shell string `json:"shell,omitempty" koanf:"shell" toml:"shell,omitempty"`
}

// IsDryRun returns whether the engine runs in dry-run mode.
func (i *InstallConfig) IsDryRun() bool {
	if i == nil || i.DryRun == nil {
		return false
	}

	return *i.DryRun
}

// GetTarget returns the target mount point with a default fallback.
func (i *InstallConfig) GetTarget() string {
	if i == nil || i.Target == "" {
		return "/mnt/archinstall"
	}

	return i.Target
}

// GetShell returns the user's login shell with a default fallback.
func (u *UserConfig) GetShell() string {
	if u.Shell == "" {
		return "/bin/bash"
	}

	return u.Shell
}
