// Command storyart turns pre-computed narrative beat prompts into organized,
// versioned image assets in the editing project tree.
package main
