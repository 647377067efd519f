// Package pipeline defines the contract between the engine and the modules it
// runs: the Module interface, the execution Context handed to every module,
// and the error types and policies that govern per-document failures.
//
// Concrete orchestration lives in package engine; built-in modules live in
// package modules.
package pipeline
