// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package backends defines the Dispatcher interface shared by the execution
// backends and the settings they are built from. Implementations live in
// sub-packages and register themselves with backendregistry.
package backends
