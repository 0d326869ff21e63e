// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package openai talks to OpenAI and OpenAI-compatible endpoints through
// langchaingo.
//
// NewEmbedder serves the embedding side and NewCompleter the answer
// synthesis side; either can be paired with the ollama package through
// ai.Compose. Point LLMHost or EmbeddingHost at a compatible server such as vLLM or
// LocalAI; Config.Normalize adds a missing /v1 suffix.
//
//	cfg := ai.DefaultConfig()
//	cfg.LLMAPIKey = os.Getenv("OPENAI_API_KEY")
//	completer, err := openai.NewCompleter(cfg)
//	if err != nil {
//	    return err
//	}
//	answer, err := completer.Complete(ctx, prompt)
package openai
