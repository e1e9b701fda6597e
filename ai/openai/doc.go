// Package openai provides ai.Embedder and ai.AIProvider implementations
// backed by OpenAI-compatible embedding APIs (OpenAI, Ollama, LocalAI, vLLM).
package openai
