// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package backendregistry maps backend names to the factories that build them.
// Backend packages register themselves from init; import allbackends to pull them all in.
package backendregistry
