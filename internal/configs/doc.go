// Package configs manages settings, user configuration and vault
// configuration for Kōwhai.
//
// Configuration is stored in TOML format at two levels:
//
//   - User config: <config-dir>/config.toml (identity, registered vaults)
//   - Vault config: <vault>/.kowhai/config.toml (vault name and UUID)
//
// # Settings
//
// Settings hold the directories Kōwhai works with. LoadSettings reads the
// KOWHAI_* environment variables and falls back to the platform defaults:
//
//   - KOWHAI_CONFIG_DIR: user config directory (default <UserConfigDir>/kowhai)
//   - KOWHAI_DATA_DIR: device keys directory (default $XDG_DATA_HOME/kowhai)
//   - KOWHAI_VAULT: vault root, skipping discovery from the working directory
//   - KOWHAI_DEVICE: device alias override for this machine
//   - KOWHAI_KEY_BITS: RSA modulus size for new device keys (default 4096)
//
// Settings are passed explicitly to the code that needs them.
//
// # User Configuration
//
// The user config stores:
//   - The identity UUID presented to the vault backend
//   - The user's email, for display only
//   - The default device alias for new registrations
//   - Map of vault UUIDs to the device alias used in that vault
//
// The identity UUID is generated on first use and shared by every device
// the user registers, which is what lets several devices act as one
// identity. Copy it to a new machine with "kowhai config init --identity".
//
// # Vault Configuration
//
// A vault is a directory containing .kowhai/ with config.toml, the backend
// snapshot state.toml, and the audit log. FindVaultRoot walks up the
// directory tree to find the nearest vault.
package configs
