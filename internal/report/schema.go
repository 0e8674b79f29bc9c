package report

// Schema is the JSON Schema (Draft 2020-12) for the sounding analysis
// JSON output. It documents the structure returned by WriteJSON.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://github.com/unbound-force/sounding/analysis-report.schema.json",
  "title": "Sounding Analysis Report",
  "description": "Output schema for sounding analyze --format=json",
  "type": "object",
  "required": ["version", "report"],
  "properties": {
    "version": {
      "type": "string",
      "description": "Report layout version (semver)"
    },
    "report": { "$ref": "#/$defs/Report" }
  },
  "$defs": {
    "Report": {
      "type": "object",
      "required": ["root", "modules", "aposd", "connascence", "findings", "summary", "warnings", "metadata"],
      "properties": {
        "root": {
          "type": "string",
          "description": "Absolute path of the analyzed tree"
        },
        "modules": {
          "type": "array",
          "items": { "$ref": "#/$defs/Module" }
        },
        "aposd": { "$ref": "#/$defs/APOSDAnalysis" },
        "connascence": { "$ref": "#/$defs/ConnascenceStats" },
        "findings": {
          "type": "array",
          "items": { "$ref": "#/$defs/Finding" }
        },
        "summary": { "$ref": "#/$defs/Summary" },
        "warnings": {
          "type": "array",
          "items": { "type": "string" },
          "description": "Units that could not be read, parsed or analyzed in time"
        },
        "metadata": { "$ref": "#/$defs/Metadata" }
      }
    },
    "Module": {
      "type": "object",
      "required": ["name", "dir", "language", "files", "counts", "connascence", "temporal"],
      "properties": {
        "name": { "type": "string" },
        "dir": { "type": "string" },
        "language": {
          "type": "string",
          "enum": ["go", "rust", "python", "java", "javascript", "typescript"]
        },
        "files": { "type": "integer", "minimum": 0 },
        "counts": { "$ref": "#/$defs/StructuralCounts" },
        "aposd": { "$ref": "#/$defs/ModuleScore" },
        "connascence": {
          "type": "object",
          "required": ["instances", "stats"],
          "properties": {
            "instances": {
              "type": "array",
              "items": { "$ref": "#/$defs/ConnascenceInstance" }
            },
            "stats": { "$ref": "#/$defs/ConnascenceStats" }
          }
        },
        "temporal": {
          "type": "object",
          "required": ["instances", "stats"],
          "properties": {
            "instances": {
              "type": "array",
              "items": { "$ref": "#/$defs/TemporalInstance" }
            },
            "stats": {
              "type": "object",
              "required": ["total_issues"],
              "properties": {
                "total_issues": { "type": "integer", "minimum": 0 }
              }
            }
          }
        },
        "warnings": {
          "type": "array",
          "items": { "type": "string" }
        }
      }
    },
    "StructuralCounts": {
      "type": "object",
      "required": ["public_types", "private_types", "external_deps", "internal_deps"],
      "properties": {
        "public_types": { "type": "integer", "minimum": 0 },
        "private_types": { "type": "integer", "minimum": 0 },
        "external_deps": { "type": "integer", "minimum": 0 },
        "internal_deps": { "type": "integer", "minimum": 0 }
      }
    },
    "ModuleScore": {
      "type": "object",
      "required": ["depth", "cognitive", "passthroughs", "hotspots"],
      "properties": {
        "depth": { "$ref": "#/$defs/DepthMetrics" },
        "cognitive": { "$ref": "#/$defs/CognitiveLoad" },
        "passthroughs": {
          "type": "array",
          "items": { "$ref": "#/$defs/Passthrough" }
        },
        "hotspots": {
          "type": ["array", "null"],
          "items": {
            "type": "object",
            "required": ["function", "file", "line", "complexity"],
            "properties": {
              "function": { "type": "string" },
              "file": { "type": "string" },
              "line": { "type": "integer" },
              "complexity": { "type": "integer", "minimum": 1 }
            }
          }
        }
      }
    },
    "DepthMetrics": {
      "type": "object",
      "required": ["module", "pub_function_count", "pub_type_count", "implementation_loc", "complexity_estimate"],
      "properties": {
        "module": { "type": "string" },
        "pub_function_count": { "type": "integer", "minimum": 0 },
        "pub_type_count": { "type": "integer", "minimum": 0 },
        "pub_const_count": { "type": "integer", "minimum": 0 },
        "total_pub_params": { "type": "integer", "minimum": 0 },
        "generic_param_count": { "type": "integer", "minimum": 0 },
        "trait_bound_count": { "type": "integer", "minimum": 0 },
        "implementation_loc": { "type": "integer", "minimum": 0 },
        "private_function_count": { "type": "integer", "minimum": 0 },
        "private_type_count": { "type": "integer", "minimum": 0 },
        "complexity_estimate": { "type": "integer", "minimum": 0 }
      }
    },
    "CognitiveLoad": {
      "type": "object",
      "required": ["module", "public_api_count", "dependency_count"],
      "properties": {
        "module": { "type": "string" },
        "public_api_count": { "type": "integer", "minimum": 0 },
        "dependency_count": { "type": "integer", "minimum": 0 },
        "avg_param_count": { "type": "number", "minimum": 0 },
        "type_variety": { "type": "integer", "minimum": 0 },
        "generics_count": { "type": "integer", "minimum": 0 },
        "trait_bounds_count": { "type": "integer", "minimum": 0 },
        "max_nesting_depth": { "type": "integer", "minimum": 0 },
        "branch_count": { "type": "integer", "minimum": 0 }
      }
    },
    "Passthrough": {
      "type": "object",
      "required": ["method", "module", "delegated_to", "params_passed_through", "total_params", "is_passthrough", "confidence"],
      "properties": {
        "method": { "type": "string" },
        "module": { "type": "string" },
        "delegated_to": { "type": "string" },
        "params_passed_through": { "type": "integer", "minimum": 0 },
        "total_params": { "type": "integer", "minimum": 0 },
        "is_passthrough": { "type": "boolean" },
        "confidence": { "type": "number", "minimum": 0 },
        "file": { "type": "string" },
        "line": { "type": "integer" }
      }
    },
    "APOSDAnalysis": {
      "type": "object",
      "required": ["module_depths", "cognitive_loads", "passthrough_methods"],
      "properties": {
        "module_depths": {
          "type": "object",
          "additionalProperties": { "$ref": "#/$defs/DepthMetrics" }
        },
        "cognitive_loads": {
          "type": "object",
          "additionalProperties": { "$ref": "#/$defs/CognitiveLoad" }
        },
        "passthrough_methods": {
          "type": "array",
          "items": { "$ref": "#/$defs/Passthrough" }
        }
      }
    },
    "ConnascenceKind": {
      "type": "string",
      "enum": ["Name", "Type", "Meaning", "Position", "Algorithm"]
    },
    "ConnascenceInstance": {
      "type": "object",
      "required": ["kind", "source", "target", "context"],
      "properties": {
        "kind": { "$ref": "#/$defs/ConnascenceKind" },
        "source": { "type": "string" },
        "target": { "type": "string" },
        "context": { "type": "string" },
        "line": { "type": "integer" }
      }
    },
    "ConnascenceStats": {
      "type": "object",
      "required": ["by_type", "total", "weighted_strength"],
      "properties": {
        "by_type": {
          "type": "object",
          "propertyNames": { "$ref": "#/$defs/ConnascenceKind" },
          "additionalProperties": { "type": "integer", "minimum": 0 }
        },
        "total": { "type": "integer", "minimum": 0 },
        "weighted_strength": { "type": "number", "minimum": 0 }
      }
    },
    "TemporalInstance": {
      "type": "object",
      "required": ["pattern", "pattern_kind", "source", "severity", "description", "suggestion"],
      "properties": {
        "pattern": { "type": "object" },
        "pattern_kind": {
          "type": "string",
          "enum": [
            "PairedOperation", "LifecycleSequence", "StateCheck",
            "DestructorImpl", "GuardPattern", "SpawnWithoutJoin",
            "ManualResource", "BuilderPattern"
          ]
        },
        "source": { "type": "string" },
        "severity": { "type": "number", "minimum": 0, "maximum": 1 },
        "description": { "type": "string", "minLength": 1 },
        "suggestion": { "type": "string", "minLength": 1 }
      }
    },
    "Finding": {
      "type": "object",
      "required": ["id", "category", "kind", "module", "severity", "tier", "message", "suggestion"],
      "properties": {
        "id": {
          "type": "string",
          "pattern": "^fd-[0-9a-f]{8}$",
          "description": "Stable identifier (fd-XXXXXXXX)"
        },
        "category": {
          "type": "string",
          "enum": ["aposd", "connascence", "temporal"]
        },
        "kind": { "type": "string" },
        "module": { "type": "string" },
        "target": { "type": "string" },
        "severity": { "type": "number", "minimum": 0, "maximum": 1 },
        "tier": {
          "type": "string",
          "enum": ["Critical", "High", "Medium"]
        },
        "message": { "type": "string", "minLength": 1 },
        "suggestion": { "type": "string", "minLength": 1 },
        "file": { "type": "string" },
        "line": { "type": "integer" }
      }
    },
    "Summary": {
      "type": "object",
      "required": [
        "modules", "aposd", "average_depth_ratio", "average_cognitive_load",
        "connascence_total", "connascence_average_strength", "connascence_high_strength",
        "temporal_issues", "temporal_high_severity", "total_issues"
      ],
      "properties": {
        "modules": { "type": "integer", "minimum": 0 },
        "aposd": {
          "type": "object",
          "required": ["shallow_modules", "passthrough_methods", "high_cognitive_load"],
          "properties": {
            "shallow_modules": { "type": "integer", "minimum": 0 },
            "passthrough_methods": { "type": "integer", "minimum": 0 },
            "high_cognitive_load": { "type": "integer", "minimum": 0 }
          }
        },
        "average_depth_ratio": {
          "oneOf": [
            { "type": "number" },
            { "type": "null" }
          ],
          "description": "Mean depth ratio over modules with a defined ratio"
        },
        "average_cognitive_load": { "type": "number", "minimum": 0 },
        "connascence_total": { "type": "integer", "minimum": 0 },
        "connascence_average_strength": { "type": "number", "minimum": 0, "maximum": 1 },
        "connascence_high_strength": { "type": "integer", "minimum": 0 },
        "temporal_issues": { "type": "integer", "minimum": 0 },
        "temporal_high_severity": { "type": "integer", "minimum": 0 },
        "total_issues": { "type": "integer", "minimum": 0 }
      }
    },
    "Metadata": {
      "type": "object",
      "required": ["sounding_version", "go_version", "extractor", "duration_ms"],
      "properties": {
        "sounding_version": { "type": "string" },
        "go_version": { "type": "string" },
        "extractor": {
          "type": "string",
          "enum": ["auto", "lexical", "treesitter"]
        },
        "duration_ms": {
          "type": "integer",
          "description": "Analysis duration in milliseconds"
        },
        "cache": {
          "type": "object",
          "properties": {
            "hits": { "type": "integer", "minimum": 0 },
            "misses": { "type": "integer", "minimum": 0 }
          }
        }
      }
    }
  }
}`
