// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package config provides centralized configuration for the pipeline using
Koanf v2. Three layers are merged in increasing priority: built-in
defaults, an optional YAML file (config.yaml, or the path named by
CONFIG_PATH), and environment variables. Environment variable names are
mapped to configuration paths explicitly in envTransformFunc; anything not
listed there is ignored rather than silently merged in.

Call Load to obtain a validated *Config. Validate is also exported so
callers constructing a Config programmatically (tests, embedders) can
check it independently.
*/
package config
